package estimate

import (
	"fmt"

	"github.com/mhusted/schoolsim/internal/structural"
)

// CounterPrediction mirrors Prediction under the rationing policy.
type CounterPrediction struct {
	Y    float64
	Phi  float64
	VC   float64
	Emax float64

	School1 float64
	Success float64
	School2 float64
}

// Counterfactual reapplies the fitted model under an admission fraction
// ration, returning predictions index-aligned with m.Pred.
//
// The static specification cannot adjust effort: Y and Phi stay at their
// status-quo fits and only the continuation value shrinks. The dynamic
// specification re-solves effort from the recovered marginal cost, so its
// predicted graduation and schooling respond to the policy.
//
// Predicted counterfactual success keeps the status-quo enrollment
// probability as its gate: the enrolled population is held fixed so the
// policy moves graduation only through effort.
// Period-2 schooling scales by ration, mirroring the random admission cap.
func (m *Model) Counterfactual(ration float64) ([]CounterPrediction, error) {
	if ration <= 0 || ration > 1 {
		return nil, fmt.Errorf("rationing fraction must be in (0, 1], got %v", ration)
	}

	out := make([]CounterPrediction, len(m.Pred))
	for i, p := range m.Pred {
		var cp CounterPrediction

		switch m.Spec {
		case Dynamic:
			sol, err := structural.Solve(structural.Primitives{
				FixedCost:    p.FC,
				Payoff:       p.Psi,
				MarginalCost: p.MC,
			}, m.Discount, ration)
			if err != nil {
				return nil, fmt.Errorf("re-solving observation %d: %w", i, err)
			}
			cp.Y = sol.Effort
			cp.Phi = sol.SuccessProb
			cp.VC = sol.VariableCost
			cp.Emax = sol.Emax
			cp.School1 = structural.Logistic(-p.FC + m.Discount*cp.Emax - cp.VC)

		default:
			cp.Y = p.Y
			cp.Phi = p.Phi
			cp.Emax = structural.EulerGamma + ration*p.Phi*structural.Log1pExp(p.Psi)
			cp.School1 = structural.Logistic(-p.FC + m.Discount*cp.Emax)
		}

		cp.Success = p.School1 * cp.Phi
		cp.School2 = cp.School1 * cp.Phi * p.College * ration

		out[i] = cp
	}

	return out, nil
}
