package main

import (
	"encoding/json"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mhusted/schoolsim/internal/logging"
	"github.com/mhusted/schoolsim/internal/panel"
	"github.com/mhusted/schoolsim/internal/report"
	"github.com/mhusted/schoolsim/internal/simulate"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate the panel without estimation",
		Long: `Simulate samples the panel and generates the true status-quo and
counterfactual choices, reporting the solved and realized series only.
Useful for inspecting the data-generating process in isolation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			period, _ := cmd.Flags().GetInt("period")

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			sampler := panel.NewSampler(cfg.Panel.Seed)
			var base []panel.Covariates
			if cfg.Panel.BaseCSV != "" {
				base, err = panel.LoadBaseCSV(cfg.Panel.BaseCSV)
				if err != nil {
					return err
				}
			} else {
				base = sampler.SyntheticBase(cfg.Panel.BaseSize)
			}
			units := sampler.Sample(base, cfg.Panel.Replications)
			logger.Info("panel sampled", "units", len(units), "seed", cfg.Panel.Seed)

			res, err := simulate.Run(units, simulate.Config{
				Discount: cfg.Model.Discount,
				Ration:   cfg.Model.Ration,
			})
			if err != nil {
				return err
			}

			series := report.Filter(report.Build(res, nil, nil, nil, nil), period)

			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(runOutput{Series: seriesSummaries(series)})
			}

			color.New(color.FgCyan).Fprintf(w, "\n=== Simulated Panel (%d units) ===\n", len(units))
			report.Render(w, series)
			return nil
		},
	}

	addPanelFlags(cmd)
	cmd.Flags().Int("period", 0, "Period filter for the series table (0 = all)")

	return cmd
}
