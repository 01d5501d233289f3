package main

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRunCmd(t *testing.T) {
	t.Setenv("SCHOOLSIM_OUTPUT_DIR", t.TempDir())

	out, err := execute(t, "run", "--base-size", "100", "--replications", "5")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, want := range []string{"Named Series", "Fitted Coefficients", "Counterfactual Comparison", "effort", "dynamic_SUCCESS_COUNTER"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRunCmd_JSON(t *testing.T) {
	t.Setenv("SCHOOLSIM_OUTPUT_DIR", t.TempDir())

	out, err := execute(t, "run", "--json", "--base-size", "100", "--replications", "5")
	if err != nil {
		t.Fatalf("run --json: %v", err)
	}

	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parsing JSON output: %v", err)
	}
	if len(got.Series) != 52 {
		t.Errorf("len(series) = %d, want 52", len(got.Series))
	}
	if len(got.Comparison) != 3 {
		t.Errorf("len(comparison) = %d, want 3", len(got.Comparison))
	}
	// 2 models, 4 stages each, intercept plus 2 covariates per stage.
	if len(got.Stages) != 24 {
		t.Errorf("len(stages) = %d, want 24", len(got.Stages))
	}
}

func TestRunCmd_PeriodFilter(t *testing.T) {
	t.Setenv("SCHOOLSIM_OUTPUT_DIR", t.TempDir())

	out, err := execute(t, "run", "--json", "--period", "1", "--base-size", "100", "--replications", "5")
	if err != nil {
		t.Fatalf("run --period 1: %v", err)
	}

	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parsing JSON output: %v", err)
	}
	for _, s := range got.Series {
		if s.Period == 2 {
			t.Errorf("period filter kept period-2 series %s", s.Name)
		}
	}
}

func TestRunCmd_SaveAndList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCHOOLSIM_OUTPUT_DIR", dir)

	if _, err := execute(t, "run", "--save", "--base-size", "50", "--replications", "4"); err != nil {
		t.Fatalf("run --save: %v", err)
	}

	out, err := execute(t, "runs", "--json")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}

	var runs []map[string]any
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("parsing runs JSON: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("len(runs) = %d, want 1", len(runs))
	}
}

func TestRunCmd_BadRation(t *testing.T) {
	if _, err := execute(t, "run", "--ration", "1.5", "--base-size", "50"); err == nil {
		t.Error("expected error for ration > 1")
	}
}

func TestSimulateCmd(t *testing.T) {
	out, err := execute(t, "simulate", "--json", "--base-size", "100", "--replications", "5")
	if err != nil {
		t.Fatalf("simulate --json: %v", err)
	}

	var got runOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parsing JSON output: %v", err)
	}
	if len(got.Series) != 16 {
		t.Errorf("len(series) = %d, want 16 true series", len(got.Series))
	}
	if len(got.Comparison) != 0 {
		t.Errorf("simulate should not produce a comparison, got %d rows", len(got.Comparison))
	}
}
