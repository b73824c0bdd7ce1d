package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// A4 geometry in inches for Chrome's print settings, matching the
// report stylesheet's 2cm page margins.
const (
	pdfPaperWidth  = 8.27
	pdfPaperHeight = 11.69
	pdfMargin      = 0.79
)

// RenderPDF prints an already-written HTML report to PDF with
// headless Chrome, bounded by the generator's PDF timeout. The PDF
// appears atomically via a temp file and rename.
func (g *Generator) RenderPDF(ctx context.Context, htmlPath, pdfPath string) error {
	if pdfPath == "" {
		return fmt.Errorf("pdf output path is empty")
	}
	if _, err := os.Stat(htmlPath); err != nil {
		return fmt.Errorf("report html not found: %w", err)
	}

	absPath, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("resolve report html path: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.pdfTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+absPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			pdf, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(pdfPaperWidth).
				WithPaperHeight(pdfPaperHeight).
				WithMarginTop(pdfMargin).
				WithMarginBottom(pdfMargin).
				WithMarginLeft(pdfMargin).
				WithMarginRight(pdfMargin).
				Do(ctx)
			return printErr
		}),
	)
	if err != nil {
		return fmt.Errorf("print report to pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pdfPath), 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmpPath := pdfPath + ".tmp"
	if err := os.WriteFile(tmpPath, pdf, 0644); err != nil {
		return fmt.Errorf("write report pdf: %w", err)
	}
	if err := os.Rename(tmpPath, pdfPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize report pdf: %w", err)
	}

	g.logger.InfoContext(ctx, "report pdf rendered",
		slog.String("path", pdfPath),
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
