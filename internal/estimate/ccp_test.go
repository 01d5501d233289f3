package estimate

import (
	"errors"
	"math"
	"testing"

	"github.com/mhusted/schoolsim/internal/panel"
	"github.com/mhusted/schoolsim/internal/simulate"
)

var testCovNames = []string{"white", "south"}

// simObservations builds an observed panel from a fresh simulation run.
// The estimator sees covariates, choices and realized effort only.
func simObservations(t *testing.T, seed uint64, n int) []Observation {
	t.Helper()

	s := panel.NewSampler(seed)
	base := []panel.Covariates{
		{White: 1, South: 0},
		{White: 0, South: 0},
		{White: 1, South: 1},
		{White: 0, South: 1},
	}
	units := s.Sample(base, n/len(base)+1)

	res, err := simulate.Run(units, simulate.DefaultConfig())
	if err != nil {
		t.Fatalf("simulate.Run: %v", err)
	}

	obs := make([]Observation, len(units))
	for i, u := range units {
		o := res.Outcomes[i]
		obs[i] = Observation{
			Covs:    []float64{u.Cov.White, u.Cov.South},
			School1: o.School1,
			Success: o.Success,
			School2: o.School2,
			Effort:  o.Base.Effort,
		}
	}
	return obs
}

func TestSpecification_String(t *testing.T) {
	if Static.String() != "static" || Dynamic.String() != "dynamic" {
		t.Errorf("unexpected names: %s, %s", Static, Dynamic)
	}
}

func TestStage_Index(t *testing.T) {
	st := Stage{Name: "test", XNames: []string{"icept", "a", "b"}, Coefs: []float64{1, 2, -3}}

	if got := st.Index([]float64{0, 0}); got != 1 {
		t.Errorf("Index at zeros = %f, want intercept 1", got)
	}
	if got := st.Index([]float64{1, 2}); got != 1+2-6 {
		t.Errorf("Index = %f, want -3", got)
	}
}

func TestFit_Dynamic(t *testing.T) {
	obs := simObservations(t, 21, 4000)

	m, err := Fit(obs, testCovNames, Dynamic, 0.95)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if m.Spec != Dynamic {
		t.Errorf("spec = %v, want Dynamic", m.Spec)
	}
	if len(m.Pred) != len(obs) {
		t.Fatalf("len(Pred) = %d, want %d", len(m.Pred), len(obs))
	}

	for _, st := range []Stage{m.College, m.Graduation, m.LogEffort, m.Schooling} {
		if len(st.Coefs) != len(testCovNames)+1 {
			t.Errorf("stage %s has %d coefficients, want %d", st.Name, len(st.Coefs), len(testCovNames)+1)
		}
	}

	for i, p := range m.Pred {
		for name, prob := range map[string]float64{
			"college": p.College, "phi": p.Phi,
			"school1": p.School1, "success": p.Success, "school2": p.School2,
		} {
			if prob < 0 || prob > 1 || math.IsNaN(prob) {
				t.Fatalf("prediction %d: %s = %f outside [0, 1]", i, name, prob)
			}
		}
		if p.Y <= 0 {
			t.Errorf("prediction %d: predicted effort %f, want > 0", i, p.Y)
		}
		if p.MC <= 0 {
			t.Errorf("prediction %d: recovered marginal cost %f, want > 0", i, p.MC)
		}
		if math.Abs(p.VC-p.MC*p.Y) > 1e-12 {
			t.Errorf("prediction %d: VC = %f, want MC*Y", i, p.VC)
		}
		// Sequential conditional probabilities.
		if math.Abs(p.Success-p.School1*p.Phi) > 1e-12 {
			t.Errorf("prediction %d: success != school1*phi", i)
		}
		if math.Abs(p.School2-p.School1*p.Phi*p.College) > 1e-12 {
			t.Errorf("prediction %d: school2 != school1*phi*college", i)
		}
	}
}

func TestFit_StaticHasNoEffortChannel(t *testing.T) {
	obs := simObservations(t, 22, 4000)

	m, err := Fit(obs, testCovNames, Static, 0.95)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for i, p := range m.Pred {
		if p.MC != 0 || p.VC != 0 {
			t.Errorf("prediction %d: static spec recovered costs MC=%f VC=%f, want 0", i, p.MC, p.VC)
		}
	}
}

func TestFit_RecoversEffortLevels(t *testing.T) {
	// Effort is deterministic in covariates, so the log-effort stage
	// recovers realized effort up to the additive approximation across
	// covariate cells.
	obs := simObservations(t, 23, 4000)

	m, err := Fit(obs, testCovNames, Dynamic, 0.95)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for i, o := range obs {
		if !o.School1 || o.Effort <= 0 {
			continue
		}
		if rel := math.Abs(m.Pred[i].Y-o.Effort) / o.Effort; rel > 0.1 {
			t.Errorf("observation %d: predicted effort %f vs realized %f", i, m.Pred[i].Y, o.Effort)
		}
	}
}

func TestFit_EmptyPanel(t *testing.T) {
	_, err := Fit(nil, testCovNames, Static, 0.95)
	var degErr *DegenerateSubsampleError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateSubsampleError, got %v", err)
	}
}

func TestFit_OneSidedCollegeOutcome(t *testing.T) {
	// Every enrolled graduate enters college: the college stage has no
	// outcome variation and must fail with the stage and filter named.
	obs := simObservations(t, 24, 2000)
	for i := range obs {
		if obs[i].School1 && obs[i].Success {
			obs[i].School2 = true
		}
	}

	_, err := Fit(obs, testCovNames, Dynamic, 0.95)
	var degErr *DegenerateSubsampleError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateSubsampleError, got %v", err)
	}
	if degErr.Stage != "college" {
		t.Errorf("failed stage = %q, want college", degErr.Stage)
	}
	if degErr.Filter == "" {
		t.Error("expected the failing filter to be named")
	}
}

func TestFit_CollinearCovariates(t *testing.T) {
	obs := simObservations(t, 25, 2000)
	// Duplicate the first covariate: the design matrix is rank-deficient.
	for i := range obs {
		obs[i].Covs = []float64{obs[i].Covs[0], obs[i].Covs[0]}
	}

	_, err := Fit(obs, []string{"white", "white2"}, Static, 0.95)
	var degErr *DegenerateSubsampleError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected DegenerateSubsampleError for collinear design, got %v", err)
	}
}

func TestFit_CovariateLengthMismatch(t *testing.T) {
	obs := simObservations(t, 26, 200)
	obs[0].Covs = []float64{1}

	if _, err := Fit(obs, testCovNames, Static, 0.95); err == nil {
		t.Error("expected error for mismatched covariate vector")
	}
}
