// Package simulate generates realized schooling, graduation and college
// choices for a unit panel, in both the status-quo world and the rationed
// counterfactual world.
package simulate

import (
	"fmt"
	"math"

	"github.com/mhusted/schoolsim/internal/panel"
	"github.com/mhusted/schoolsim/internal/structural"
)

// Config holds the simulator's structural constants.
type Config struct {
	// Discount is the per-period discount factor.
	Discount float64

	// Ration is the admission fraction applied in the counterfactual
	// world. With Ration = 1 the counterfactual reduces to the status quo
	// exactly, including the admission-cap draw (which then never binds).
	Ration float64
}

// DefaultConfig returns the baseline model constants.
func DefaultConfig() Config {
	return Config{Discount: 0.95, Ration: 0.5}
}

// Outcome is one unit's solved values and realized choices in both worlds.
type Outcome struct {
	Prim structural.Primitives

	// Base is the solved block under the status-quo admission rule (r=1);
	// Rationed is the same block re-solved under the counterfactual rule.
	Base     structural.Solution
	Rationed structural.Solution

	// Status-quo realized choices. Success is defined only for enrolled
	// units and period-2 school only for enrolled graduates; both are
	// forced false otherwise.
	School1 bool
	Success bool
	School2 bool

	// Counterfactual mirrors. SuccessC conditions on the status-quo
	// enrollment decision: the enrolled population is held fixed so the
	// policy moves graduation only through effort.
	School1C bool
	SuccessC bool
	School2C bool
}

// Result is the simulated panel: units plus their outcomes, index-aligned.
type Result struct {
	Units    []panel.Unit
	Outcomes []Outcome
}

// Run solves and simulates every unit. Columns are computed in strict
// dependency order and never revisited; the only cross-period coupling is
// the absorbing dropout rule at period 2.
func Run(units []panel.Unit, cfg Config) (Result, error) {
	outcomes := make([]Outcome, len(units))

	for i, u := range units {
		prim := structural.FromCovariates(u.Cov)

		base, err := structural.Solve(prim, cfg.Discount, 1.0)
		if err != nil {
			return Result{}, fmt.Errorf("solving unit %d: %w", u.ID, err)
		}
		rationed, err := structural.Solve(prim, cfg.Discount, cfg.Ration)
		if err != nil {
			return Result{}, fmt.Errorf("solving unit %d (rationed): %w", u.ID, err)
		}

		o := Outcome{Prim: prim, Base: base, Rationed: rationed}

		// Period 1: enroll iff the enrollment value beats the outside
		// option, each carrying its own taste shock.
		o.School1 = base.FlowUtility+cfg.Discount*base.Emax+u.EV11 > u.EV01
		o.Success = o.School1 && succeeds(base.Effort, u.Eta)

		// Period 2: college is reachable only for enrolled graduates.
		o.School2 = o.School1 && o.Success && prim.Payoff+u.EV12 > u.EV02

		// Counterfactual world: same taste shocks, re-solved effort block.
		o.School1C = rationed.FlowUtility+cfg.Discount*rationed.Emax+u.EV11 > u.EV01
		o.SuccessC = o.School1 && succeeds(rationed.Effort, u.Eta)
		o.School2C = o.School1C && o.SuccessC &&
			prim.Payoff+u.EV12 > u.EV02 &&
			u.Ration <= cfg.Ration

		outcomes[i] = o
	}

	return Result{Units: units, Outcomes: outcomes}, nil
}

// succeeds reports whether effort y and performance shock eta produce
// graduation: ln(y) + eta > 0. Zero effort can never succeed; the log is
// guarded rather than evaluated at -inf.
func succeeds(y, eta float64) bool {
	if y <= 0 {
		return false
	}
	return math.Log(y)+eta > 0
}
