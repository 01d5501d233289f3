package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mhusted/schoolsim/internal/logging"
	"github.com/mhusted/schoolsim/internal/pipeline"
	"github.com/mhusted/schoolsim/internal/report"
	"github.com/mhusted/schoolsim/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full simulate-estimate-counterfactual pipeline",
		Long: `Run samples the panel, simulates schooling and effort choices in the
status-quo and rationed worlds, estimates the static and dynamic CCP
specifications, and reports every named series plus the headline
comparison of counterfactual predictions.

Examples:
  schoolsim run                      # defaults (seed 42, ration 0.5)
  schoolsim run --seed 7 --ration 0.25
  schoolsim run --save               # persist series means to the run DB`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			save, _ := cmd.Flags().GetBool("save")
			period, _ := cmd.Flags().GetInt("period")

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			trace := logging.NewStageTrace(cfg.Output.Dir, cfg.Logging.Level)
			defer trace.Close()

			res, err := pipeline.Run(cfg, logger, trace)
			if err != nil {
				return err
			}

			series := report.Filter(res.Series, period)
			comparison := report.Compare(res.Sim, res.StaticCounter, res.DynamicCounter)
			stages := report.Stages(res.Static, res.Dynamic)

			if save || cfg.Output.SaveRuns {
				if err := saveRun(cfg.Output.Dir, cfg.Panel.Seed, cfg.Panel.Replications,
					cfg.Model.Ration, res.Series); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(w).Encode(runOutput{
					Series:     seriesSummaries(series),
					Stages:     stages,
					Comparison: comparison,
				})
			}

			color.New(color.FgCyan).Fprintln(w, "\n=== Named Series ===")
			report.Render(w, series)

			color.New(color.FgCyan).Fprintln(w, "\nFitted Coefficients")
			report.RenderStages(w, stages)

			color.New(color.FgYellow).Fprintln(w, "\nCounterfactual Comparison")
			report.RenderComparison(w, comparison)

			return nil
		},
	}

	addPanelFlags(cmd)
	cmd.Flags().Bool("save", false, "Persist series means to the run database")
	cmd.Flags().Int("period", 0, "Period filter for the series table (0 = all)")

	return cmd
}

type runOutput struct {
	Series     []seriesSummary        `json:"series"`
	Stages     []report.StageRow      `json:"stages,omitempty"`
	Comparison []report.ComparisonRow `json:"comparison,omitempty"`
}

type seriesSummary struct {
	Name   string  `json:"name"`
	Period int     `json:"period"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

func seriesSummaries(series []report.Series) []seriesSummary {
	out := make([]seriesSummary, len(series))
	for i, s := range series {
		out[i] = seriesSummary{Name: s.Name, Period: s.Period, Mean: s.Mean(), StdDev: s.StdDev()}
	}
	return out
}

func saveRun(dir string, seed uint64, reps int, ration float64, series []report.Series) error {
	rs, err := store.NewRunStore(dir)
	if err != nil {
		return err
	}
	defer rs.Close()

	run := store.RunRecord{
		ID:           fmt.Sprintf("run-%d-%d", seed, time.Now().UnixNano()),
		Seed:         seed,
		Replications: reps,
		Ration:       ration,
		CreatedAt:    time.Now(),
	}
	for _, s := range series {
		run.Series = append(run.Series, store.SeriesMean{Name: s.Name, Period: s.Period, Mean: s.Mean()})
	}

	return rs.SaveRun(context.Background(), run)
}
