package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/mhusted/schoolsim/internal/estimate"
	"github.com/mhusted/schoolsim/internal/panel"
	"github.com/mhusted/schoolsim/internal/simulate"
)

func testRun(t *testing.T) (simulate.Result, *estimate.Model, *estimate.Model,
	[]estimate.CounterPrediction, []estimate.CounterPrediction) {
	t.Helper()

	s := panel.NewSampler(51)
	base := []panel.Covariates{
		{White: 1, South: 0},
		{White: 0, South: 0},
		{White: 1, South: 1},
		{White: 0, South: 1},
	}
	units := s.Sample(base, 500)

	res, err := simulate.Run(units, simulate.DefaultConfig())
	if err != nil {
		t.Fatalf("simulate.Run: %v", err)
	}

	obs := make([]estimate.Observation, len(units))
	for i, u := range units {
		o := res.Outcomes[i]
		obs[i] = estimate.Observation{
			Covs:    []float64{u.Cov.White, u.Cov.South},
			School1: o.School1,
			Success: o.Success,
			School2: o.School2,
			Effort:  o.Base.Effort,
		}
	}

	covNames := []string{"white", "south"}
	static, err := estimate.Fit(obs, covNames, estimate.Static, 0.95)
	if err != nil {
		t.Fatalf("Fit(static): %v", err)
	}
	dynamic, err := estimate.Fit(obs, covNames, estimate.Dynamic, 0.95)
	if err != nil {
		t.Fatalf("Fit(dynamic): %v", err)
	}

	staticC, err := static.Counterfactual(0.5)
	if err != nil {
		t.Fatalf("static Counterfactual: %v", err)
	}
	dynamicC, err := dynamic.Counterfactual(0.5)
	if err != nil {
		t.Fatalf("dynamic Counterfactual: %v", err)
	}

	return res, static, dynamic, staticC, dynamicC
}

func TestSeries_Mean(t *testing.T) {
	s := Series{Name: "x", Values: []float64{1, 2, 3, 4}}
	if got := s.Mean(); got != 2.5 {
		t.Errorf("Mean = %f, want 2.5", got)
	}
}

func TestBuild_FullSeriesSet(t *testing.T) {
	res, static, dynamic, staticC, dynamicC := testRun(t)

	series := Build(res, static, dynamic, staticC, dynamicC)

	// 16 true series plus 18 per estimated specification.
	if got, want := len(series), 16+2*18; got != want {
		t.Errorf("len(series) = %d, want %d", got, want)
	}

	names := map[string]bool{}
	for _, s := range series {
		names[s.Name] = true
		if len(s.Values) != len(res.Outcomes) {
			t.Errorf("series %s has %d values, want %d", s.Name, len(s.Values), len(res.Outcomes))
		}
		if m := s.Mean(); math.IsNaN(m) || math.IsInf(m, 0) {
			t.Errorf("series %s has non-finite mean", s.Name)
		}
	}

	for _, want := range []string{
		"effort", "emax_counter", "school", "success_counter",
		"static_SCHOOL", "static_SUCCESS_COUNTER",
		"dynamic_Y_COUNTER", "dynamic_EMAX", "dynamic_FC",
	} {
		if !names[want] {
			t.Errorf("missing series %q", want)
		}
	}
}

func TestBuild_NilModels(t *testing.T) {
	res, _, _, _, _ := testRun(t)

	series := Build(res, nil, nil, nil, nil)
	if got := len(series); got != 16 {
		t.Errorf("len(series) = %d, want 16 true series only", got)
	}
}

func TestFilter(t *testing.T) {
	series := []Series{
		{Name: "a", Period: 0},
		{Name: "b", Period: 1},
		{Name: "c", Period: 2},
	}

	if got := len(Filter(series, 0)); got != 3 {
		t.Errorf("Filter(0) kept %d, want 3", got)
	}
	for _, s := range Filter(series, 1) {
		if s.Period == 2 {
			t.Errorf("Filter(1) kept period-2 series %s", s.Name)
		}
	}
	if got := len(Filter(series, 2)); got != 2 {
		t.Errorf("Filter(2) kept %d, want 2", got)
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []Series{{Name: "effort", Period: 0, Values: []float64{1, 3}}})

	out := buf.String()
	if !strings.Contains(out, "effort") {
		t.Error("rendered table missing series name")
	}
	if !strings.Contains(out, "2.0000") {
		t.Error("rendered table missing mean value")
	}
}

func TestStages(t *testing.T) {
	_, static, dynamic, _, _ := testRun(t)

	rows := Stages(static, dynamic)
	// 2 models, 4 stages, intercept plus 2 covariates per stage.
	if got, want := len(rows), 24; got != want {
		t.Fatalf("len(rows) = %d, want %d", got, want)
	}
	if rows[0].Spec != "static" || rows[0].Stage != "college" || rows[0].Term != "icept" {
		t.Errorf("first row = %+v, want static college intercept", rows[0])
	}

	if got := len(Stages(nil, dynamic)); got != 12 {
		t.Errorf("len(rows) with one model = %d, want 12", got)
	}

	var buf bytes.Buffer
	RenderStages(&buf, rows)
	if !strings.Contains(buf.String(), "graduation") {
		t.Error("stage table missing graduation rows")
	}
}

func TestCompare(t *testing.T) {
	res, _, _, staticC, dynamicC := testRun(t)

	rows := Compare(res, staticC, dynamicC)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	for _, r := range rows {
		for _, v := range []float64{r.StatusQuo, r.TrueCounter, r.StaticCounter, r.DynamicCounter} {
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Errorf("row %s/%d has mean %f outside [0, 1]", r.Outcome, r.Period, v)
			}
		}
	}

	var buf bytes.Buffer
	RenderComparison(&buf, rows)
	if !strings.Contains(buf.String(), "school") {
		t.Error("comparison table missing outcome rows")
	}
}
