package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Execution mode (sequential or parallel)
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// When true, steps run even if a dependency failed. The default skips
	// every step downstream of a failure.
	ContinueOnError bool `json:"continue_on_error"`

	// Maximum concurrent steps (for parallel execution)
	MaxConcurrency int `json:"max_concurrency"`

	// Defaults applied when the request leaves them empty
	DatasetPath  string             `json:"dataset_path"`
	OutputDir    string             `json:"output_dir"`
	ChartsDir    string             `json:"charts_dir"`
	HorizonYears []int              `json:"horizon_years"`
	Scenarios    map[string]float64 `json:"scenarios"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		ExecutionMode: ExecutionModeSequential,
		StepTimeouts: map[string]time.Duration{
			StepIDLoad:     DefaultLoadTimeout,
			StepIDQuality:  DefaultQualityTimeout,
			StepIDForecast: DefaultForecastTimeout,
			StepIDExport:   DefaultExportTimeout,
			StepIDReport:   DefaultReportTimeout,
		},
		RetryConfig:     NewRetryConfig(),
		ContinueOnError: false,
		MaxConcurrency:  1,
		DatasetPath:     "data/ethiopia_fi_unified_data.csv",
		OutputDir:       "output",
		ChartsDir:       "output/charts",
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// ConfigBuilder provides a fluent interface for building operation configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithExecutionMode sets the execution mode
func (b *ConfigBuilder) WithExecutionMode(mode ExecutionMode) *ConfigBuilder {
	b.config.ExecutionMode = mode
	return b
}

// WithStepTimeout sets the timeout for a step
func (b *ConfigBuilder) WithStepTimeout(stepID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStepTimeout(stepID, timeout)
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether to run steps whose dependencies failed
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithMaxConcurrency sets the maximum concurrency
func (b *ConfigBuilder) WithMaxConcurrency(maxConcurrency int) *ConfigBuilder {
	b.config.MaxConcurrency = maxConcurrency
	return b
}

// WithDatasetPath sets the default dataset path
func (b *ConfigBuilder) WithDatasetPath(path string) *ConfigBuilder {
	b.config.DatasetPath = path
	return b
}

// WithOutputDir sets the default output directory
func (b *ConfigBuilder) WithOutputDir(dir string) *ConfigBuilder {
	b.config.OutputDir = dir
	return b
}

// WithChartsDir sets the default charts directory
func (b *ConfigBuilder) WithChartsDir(dir string) *ConfigBuilder {
	b.config.ChartsDir = dir
	return b
}

// WithHorizonYears sets the default forecast horizon
func (b *ConfigBuilder) WithHorizonYears(years []int) *ConfigBuilder {
	b.config.HorizonYears = years
	return b
}

// WithScenarios sets the default scenario growth rates
func (b *ConfigBuilder) WithScenarios(scenarios map[string]float64) *ConfigBuilder {
	b.config.Scenarios = scenarios
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
