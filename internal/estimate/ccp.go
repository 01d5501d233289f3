// Package estimate recovers the structural model from observed choices
// via conditional-choice-probability estimation: sequential logit and
// linear stages whose fitted values feed later stages, with the known
// structural coefficients pinned rather than estimated.
package estimate

import (
	"fmt"
	"math"

	"github.com/mhusted/schoolsim/internal/structural"
)

// Specification selects the estimated model's behavioral assumptions.
type Specification int

const (
	// Static treats effort as fixed: the continuation value is the only
	// dynamic channel, entering with the known discount factor.
	Static Specification = iota

	// Dynamic additionally recovers the effort margin: the variable cost
	// implied by the effort first-order condition enters the schooling
	// stage with unit marginal disutility.
	Dynamic
)

func (s Specification) String() string {
	switch s {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return fmt.Sprintf("Specification(%d)", int(s))
	}
}

// Observation is one unit as the econometrician sees it: covariates,
// realized choices, and realized effort. Structural primitives and shocks
// are not observed.
type Observation struct {
	Covs    []float64
	School1 bool
	Success bool
	School2 bool
	Effort  float64
}

// Stage is one fitted sub-model: a coefficient vector aligned to XNames,
// intercept first. Later stages consume earlier stages through this
// explicit handle rather than any ambient "current estimate" state.
type Stage struct {
	Name   string
	XNames []string
	Coefs  []float64
}

// Index evaluates the stage's linear index at a covariate vector
// (intercept excluded from covs).
func (st Stage) Index(covs []float64) float64 {
	idx := st.Coefs[0]
	for j, v := range covs {
		idx += st.Coefs[j+1] * v
	}
	return idx
}

// Prediction holds every fitted object for one observation.
type Prediction struct {
	// College is the fitted period-2 college entry probability; Psi is
	// the same stage's linear index, reused as the payoff index.
	College float64
	Psi     float64

	// Phi is the fitted graduation probability; Y the predicted effort
	// level from the log-effort regression.
	Phi float64
	Y   float64

	// Emax is the implied continuation value.
	Emax float64

	// MC and VC are the recovered marginal and variable cost of effort
	// (dynamic specification only; zero under static). FC is the fixed
	// cost recovered as the negated free index of the schooling stage.
	MC float64
	VC float64
	FC float64

	// School1, Success and School2 are the predicted choice
	// probabilities: P(enroll), P(enroll)*Phi, and
	// P(enroll)*Phi*College respectively.
	School1 float64
	Success float64
	School2 float64
}

// Model is one estimated specification with its fitted stages and
// per-observation predictions, index-aligned with the input panel.
type Model struct {
	Spec     Specification
	Discount float64
	CovNames []string

	College    Stage
	Graduation Stage
	LogEffort  Stage
	Schooling  Stage

	Pred []Prediction
}

// Fit estimates the model on the observed panel.
//
// Stage order is fixed by the dependency structure: the college stage's
// index feeds the continuation value, the graduation and log-effort
// stages feed the effort block, and the schooling stage is fit last with
// the structural terms pinned through the offset.
func Fit(obs []Observation, covNames []string, spec Specification, discount float64) (*Model, error) {
	if len(obs) == 0 {
		return nil, &DegenerateSubsampleError{Stage: "college", Filter: "school1 & success", Reason: "empty panel"}
	}
	k := len(covNames)
	for i, o := range obs {
		if len(o.Covs) != k {
			return nil, fmt.Errorf("observation %d has %d covariates, want %d", i, len(o.Covs), k)
		}
	}

	m := &Model{Spec: spec, Discount: discount, CovNames: covNames}

	// Step A: college logit on enrolled graduates.
	d := subsample(obs, covNames, "college", "school1 & success",
		func(o Observation) bool { return o.School1 && o.Success },
		func(o Observation) float64 { return b2f(o.School2) })
	coefs, err := d.fitLogit()
	if err != nil {
		return nil, err
	}
	m.College = Stage{Name: "college", XNames: d.stageNames(), Coefs: coefs}

	// Step B: graduation logit and log-effort regression on the enrolled.
	d = subsample(obs, covNames, "graduation", "school1",
		func(o Observation) bool { return o.School1 },
		func(o Observation) float64 { return b2f(o.Success) })
	coefs, err = d.fitLogit()
	if err != nil {
		return nil, err
	}
	m.Graduation = Stage{Name: "graduation", XNames: d.stageNames(), Coefs: coefs}

	d = subsample(obs, covNames, "log-effort", "school1 & effort > 0",
		func(o Observation) bool { return o.School1 && o.Effort > 0 },
		func(o Observation) float64 { return math.Log(o.Effort) })
	coefs, err = d.fitLinear()
	if err != nil {
		return nil, err
	}
	m.LogEffort = Stage{Name: "log-effort", XNames: d.stageNames(), Coefs: coefs}

	// Fitted objects for every row, in-sample or not.
	m.Pred = make([]Prediction, len(obs))
	for i, o := range obs {
		psi := m.College.Index(o.Covs)
		p := Prediction{
			Psi:     psi,
			College: structural.Logistic(psi),
			Phi:     structural.Logistic(m.Graduation.Index(o.Covs)),
			Y:       math.Exp(m.LogEffort.Index(o.Covs)),
		}
		p.Emax = structural.EulerGamma + p.Phi*structural.Log1pExp(psi)
		m.Pred[i] = p
	}

	// Step C: schooling logit with pinned structural coefficients. The
	// discounted continuation value carries the known discount factor and, under
	// the dynamic specification, the recovered variable cost carries -1;
	// both are imposed through the offset.
	offset := make([]float64, len(obs))
	for i := range m.Pred {
		p := &m.Pred[i]
		switch spec {
		case Dynamic:
			// Invert the effort first-order condition at the fitted
			// effort level to recover the marginal cost.
			p.MC = discount * structural.Log1pExp(p.Psi) / ((1 + p.Y) * (1 + p.Y))
			p.VC = p.MC * p.Y
			offset[i] = discount*p.Emax - p.VC
		default:
			offset[i] = discount * p.Emax
		}
	}

	d = subsample(obs, covNames, "schooling", "all rows",
		func(o Observation) bool { return true },
		func(o Observation) float64 { return b2f(o.School1) })
	d.offset = offset
	coefs, err = d.fitLogit()
	if err != nil {
		return nil, err
	}
	m.Schooling = Stage{Name: "schooling", XNames: d.stageNames(), Coefs: coefs}

	for i, o := range obs {
		p := &m.Pred[i]
		idx := m.Schooling.Index(o.Covs)
		p.FC = -idx
		p.School1 = structural.Logistic(idx + offset[i])
		p.Success = p.School1 * p.Phi
		p.School2 = p.School1 * p.Phi * p.College
	}

	return m, nil
}

// subsample builds a stage design from the filtered rows.
func subsample(obs []Observation, covNames []string, stage, filter string,
	keep func(Observation) bool, outcome func(Observation) float64) *design {

	d := &design{
		stage:  stage,
		filter: filter,
		x:      make([][]float64, len(covNames)),
		xnames: covNames,
	}
	for _, o := range obs {
		if !keep(o) {
			continue
		}
		d.y = append(d.y, outcome(o))
		for j := range covNames {
			d.x[j] = append(d.x[j], o.Covs[j])
		}
	}
	return d
}

// stageNames returns the fitted coefficient names, intercept first.
func (d *design) stageNames() []string {
	names := make([]string, 0, len(d.xnames)+1)
	names = append(names, "icept")
	names = append(names, d.xnames...)
	return names
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
