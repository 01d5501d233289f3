// Package pipeline orchestrates a full run: sample the panel, solve and
// simulate both worlds, estimate both specifications, predict each
// model's counterfactual, and assemble the named series.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/mhusted/schoolsim/internal/config"
	"github.com/mhusted/schoolsim/internal/estimate"
	"github.com/mhusted/schoolsim/internal/logging"
	"github.com/mhusted/schoolsim/internal/panel"
	"github.com/mhusted/schoolsim/internal/report"
	"github.com/mhusted/schoolsim/internal/simulate"
)

// Result collects everything a run produces.
type Result struct {
	Units []panel.Unit
	Sim   simulate.Result

	Static  *estimate.Model
	Dynamic *estimate.Model

	StaticCounter  []estimate.CounterPrediction
	DynamicCounter []estimate.CounterPrediction

	Series []report.Series
}

// Run executes the full pipeline under cfg. The trace may be nil.
func Run(cfg *config.Config, logger *slog.Logger, trace *logging.StageTrace) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sampler := panel.NewSampler(cfg.Panel.Seed)

	var base []panel.Covariates
	var err error
	if cfg.Panel.BaseCSV != "" {
		base, err = panel.LoadBaseCSV(cfg.Panel.BaseCSV)
		if err != nil {
			return nil, fmt.Errorf("loading base sample: %w", err)
		}
	} else {
		base = sampler.SyntheticBase(cfg.Panel.BaseSize)
	}

	units := sampler.Sample(base, cfg.Panel.Replications)
	logger.Info("panel sampled", "base", len(base), "units", len(units), "seed", cfg.Panel.Seed)
	trace.Log(map[string]any{"stage": "panel", "base": len(base), "units": len(units)})

	sim, err := simulate.Run(units, simulate.Config{
		Discount: cfg.Model.Discount,
		Ration:   cfg.Model.Ration,
	})
	if err != nil {
		return nil, fmt.Errorf("simulating choices: %w", err)
	}
	trace.Log(map[string]any{"stage": "simulate", "ration": cfg.Model.Ration})

	obs, err := observations(sim, cfg.Model.Covariates)
	if err != nil {
		return nil, err
	}

	res := &Result{Units: units, Sim: sim}

	for _, spec := range []estimate.Specification{estimate.Static, estimate.Dynamic} {
		m, err := estimate.Fit(obs, cfg.Model.Covariates, spec, cfg.Model.Discount)
		if err != nil {
			return nil, fmt.Errorf("fitting %s specification: %w", spec, err)
		}
		counter, err := m.Counterfactual(cfg.Model.Ration)
		if err != nil {
			return nil, fmt.Errorf("predicting %s counterfactual: %w", spec, err)
		}

		logger.Info("specification estimated", "spec", spec.String(),
			"schooling_coefs", m.Schooling.Coefs)
		trace.Log(map[string]any{"stage": "estimate", "spec": spec.String()})

		switch spec {
		case estimate.Static:
			res.Static, res.StaticCounter = m, counter
		case estimate.Dynamic:
			res.Dynamic, res.DynamicCounter = m, counter
		}
	}

	res.Series = report.Build(sim, res.Static, res.Dynamic, res.StaticCounter, res.DynamicCounter)
	trace.Log(map[string]any{"stage": "report", "series": len(res.Series)})

	return res, nil
}

// observations projects the status-quo simulation onto what the
// econometrician observes: covariates, choices, and realized effort.
// The counterfactual columns are never exposed to the estimator.
func observations(sim simulate.Result, covNames []string) ([]estimate.Observation, error) {
	obs := make([]estimate.Observation, len(sim.Units))
	for i, u := range sim.Units {
		covs := make([]float64, len(covNames))
		for j, name := range covNames {
			v, err := u.Cov.Value(name)
			if err != nil {
				return nil, fmt.Errorf("building observations: %w", err)
			}
			covs[j] = v
		}
		o := sim.Outcomes[i]
		obs[i] = estimate.Observation{
			Covs:    covs,
			School1: o.School1,
			Success: o.Success,
			School2: o.School2,
			Effort:  o.Base.Effort,
		}
	}
	return obs, nil
}
