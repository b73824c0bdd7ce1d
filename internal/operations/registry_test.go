package operations_test

import (
	"strings"
	"testing"

	"eficli/internal/operations"
	"eficli/internal/operations/testutil"
)

func TestRegistryRegister(t *testing.T) {
	registry := operations.NewRegistry()

	step := testutil.CreateSuccessfulStep("load", "Dataset Load")
	testutil.AssertNoError(t, registry.Register(step))

	testutil.AssertEqual(t, registry.Count(), 1)
	if !registry.Has("load") {
		t.Error("registry should contain the registered step")
	}

	got, err := registry.Get("load")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.ID(), "load")
}

func TestRegistryRegisterErrors(t *testing.T) {
	registry := operations.NewRegistry()

	if err := registry.Register(nil); err == nil {
		t.Error("registering nil should fail")
	}

	if err := registry.Register(&testutil.MockStep{IDValue: ""}); err == nil {
		t.Error("registering a step with empty ID should fail")
	}

	testutil.AssertNoError(t, registry.Register(testutil.CreateSuccessfulStep("load", "Dataset Load")))
	err := registry.Register(testutil.CreateSuccessfulStep("load", "Duplicate"))
	testutil.AssertErrorContains(t, err, "already registered")
}

func TestRegistryUnregister(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Dataset Load"))

	testutil.AssertNoError(t, registry.Unregister("load"))
	if registry.Has("load") {
		t.Error("unregistered step should be gone")
	}

	if err := registry.Unregister("load"); err == nil {
		t.Error("unregistering an unknown step should fail")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := operations.NewRegistry()

	_, err := registry.Get("missing")
	testutil.AssertErrorContains(t, err, "not found")
}

func TestRegistryListOrder(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("c", "C"))
	registry.Register(testutil.CreateSuccessfulStep("a", "A"))
	registry.Register(testutil.CreateSuccessfulStep("b", "B"))

	ids := registry.ListIDs()
	testutil.AssertEqual(t, len(ids), 3)
	testutil.AssertEqual(t, ids[0], "c")
	testutil.AssertEqual(t, ids[1], "a")
	testutil.AssertEqual(t, ids[2], "b")

	steps := registry.List()
	testutil.AssertEqual(t, len(steps), 3)
	testutil.AssertEqual(t, steps[0].ID(), "c")
}

func TestRegistryDependencyOrder(t *testing.T) {
	registry := operations.NewRegistry()

	// Register in reverse order to prove the sort is dependency driven
	registry.Register(testutil.CreateSuccessfulStep("report", "Report", "forecast"))
	registry.Register(testutil.CreateSuccessfulStep("export", "Export", "forecast"))
	registry.Register(testutil.CreateSuccessfulStep("forecast", "Forecast", "quality"))
	registry.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))

	ordered, err := registry.GetDependencyOrder()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(ordered), 5)

	position := make(map[string]int)
	for i, step := range ordered {
		position[step.ID()] = i
	}

	if position["load"] > position["quality"] {
		t.Error("load must come before quality")
	}
	if position["quality"] > position["forecast"] {
		t.Error("quality must come before forecast")
	}
	if position["forecast"] > position["export"] {
		t.Error("forecast must come before export")
	}
	if position["forecast"] > position["report"] {
		t.Error("forecast must come before report")
	}

	// Ties break by registration order: report registered before export
	if position["report"] > position["export"] {
		t.Error("registration order should break ties between independent steps")
	}
}

func TestRegistryDependencyOrderMissingDep(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("forecast", "Forecast", "quality"))

	_, err := registry.GetDependencyOrder()
	testutil.AssertErrorContains(t, err, "non-existent")
}

func TestRegistryDependencyCycle(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("a", "A", "b"))
	registry.Register(testutil.CreateSuccessfulStep("b", "B", "a"))

	_, err := registry.GetDependencyOrder()
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("expected cycle error, got %v", err)
	}

	err = registry.ValidateDependencies()
	if err == nil {
		t.Error("ValidateDependencies should report the cycle")
	}
}

func TestRegistryValidateDependencies(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))
	registry.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))

	testutil.AssertNoError(t, registry.ValidateDependencies())
}

func TestRegistryGetDependents(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("forecast", "Forecast"))
	registry.Register(testutil.CreateSuccessfulStep("export", "Export", "forecast"))
	registry.Register(testutil.CreateSuccessfulStep("report", "Report", "forecast"))

	dependents := registry.GetDependents("forecast")
	testutil.AssertEqual(t, len(dependents), 2)

	testutil.AssertEqual(t, len(registry.GetDependents("report")), 0)
}

func TestRegistryClear(t *testing.T) {
	registry := testutil.CreateTestRegistry()
	if registry.Count() == 0 {
		t.Fatal("test registry should start populated")
	}

	registry.Clear()
	testutil.AssertEqual(t, registry.Count(), 0)
	testutil.AssertEqual(t, len(registry.ListIDs()), 0)
}

func TestRegistryClone(t *testing.T) {
	registry := operations.NewRegistry()
	registry.Register(testutil.CreateSuccessfulStep("load", "Load"))

	clone := registry.Clone()
	testutil.AssertEqual(t, clone.Count(), 1)

	// Registering into the clone must not touch the original
	clone.Register(testutil.CreateSuccessfulStep("quality", "Quality", "load"))
	testutil.AssertEqual(t, registry.Count(), 1)
	testutil.AssertEqual(t, clone.Count(), 2)
}
