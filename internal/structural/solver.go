// Package structural holds the model primitives and the closed-form
// solver for optimal effort, flow utility, graduation probability and
// continuation value in the two-period schooling model.
package structural

import (
	"fmt"
	"math"

	"github.com/mhusted/schoolsim/internal/panel"
)

// EulerGamma is the Euler–Mascheroni constant, the mean of a standard
// type-1 extreme-value draw. It anchors the logsum continuation value.
const EulerGamma = 0.5772156649015329

// Primitives are the per-individual structural parameters.
type Primitives struct {
	// FixedCost is the per-period fixed cost of enrollment.
	FixedCost float64

	// Payoff (psi) is the college payoff index entering the period-2 choice.
	Payoff float64

	// MarginalCost (mc) is the marginal cost of effort.
	MarginalCost float64
}

// FromCovariates maps observables to primitives. The mapping is pinned by
// the reference scenario: white=1, south=0 gives fixed cost 0, payoff 3.5
// and marginal cost exp(-2).
func FromCovariates(c panel.Covariates) Primitives {
	return Primitives{
		FixedCost:    1 - c.White,
		Payoff:       3 + 0.5*c.White - 0.5*c.South,
		MarginalCost: math.Exp(-1.5 - 0.5*c.White + 0.5*c.South),
	}
}

// Solution is the solved optimal-effort block for one individual under a
// given rationing scale.
type Solution struct {
	// Effort (y) is the optimal effort level, never negative.
	Effort float64

	// VariableCost (vc) is mc * y.
	VariableCost float64

	// FlowUtility (u) is the period-1 flow payoff of enrolling.
	FlowUtility float64

	// SuccessProb (phi) is the graduation probability implied by effort.
	SuccessProb float64

	// Emax is the expected continuation value of reaching period 2.
	Emax float64
}

// InvalidEffortDomainError reports primitives outside the solver's domain:
// a non-positive or non-finite marginal cost, or a non-finite payoff or
// fixed cost. The zero-effort corner is not an error; it is handled by the
// clipping rule inside Solve.
type InvalidEffortDomainError struct {
	Prim Primitives
}

func (e *InvalidEffortDomainError) Error() string {
	return fmt.Sprintf("effort solution undefined for primitives %+v", e.Prim)
}

// Solve computes the closed-form optimal effort and value block for the
// given primitives, discount factor, and rationing scale r in (0, 1].
//
// Effort solves the first-order condition of the additively separable
// cost/benefit problem: y = sqrt(discount * r * ln(1+exp(psi)) / mc) - 1,
// clipped at zero. At the corner, the graduation probability is the
// limit value 0 rather than Logistic(ln 0).
func Solve(p Primitives, discount, ration float64) (Solution, error) {
	if p.MarginalCost <= 0 ||
		!finite(p.MarginalCost) || !finite(p.Payoff) || !finite(p.FixedCost) {
		return Solution{}, &InvalidEffortDomainError{Prim: p}
	}
	if ration <= 0 || ration > 1 {
		return Solution{}, fmt.Errorf("rationing scale must be in (0, 1], got %v", ration)
	}

	// Expected period-2 prize under rationing: r * logsum(psi, 0).
	prize := ration * Log1pExp(p.Payoff)

	y := math.Sqrt(discount*prize/p.MarginalCost) - 1
	if y < 0 {
		y = 0
	}

	vc := p.MarginalCost * y

	var phi float64
	if y > 0 {
		phi = Logistic(math.Log(y))
	}

	return Solution{
		Effort:       y,
		VariableCost: vc,
		FlowUtility:  -p.FixedCost - vc,
		SuccessProb:  phi,
		Emax:         EulerGamma + phi*prize,
	}, nil
}

// Logistic is the standard logistic CDF.
func Logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Log1pExp computes ln(1+exp(x)) without overflow for large x.
func Log1pExp(x float64) float64 {
	if x > 35 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
