package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mhusted/schoolsim/internal/config"
	"github.com/mhusted/schoolsim/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		Long: `Runs lists the runs persisted with 'schoolsim run --save', newest
first. Use --id to print one run's stored series means.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			id, _ := cmd.Flags().GetString("id")

			rs, err := store.NewRunStore(cfg.Output.Dir)
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx := context.Background()
			w := cmd.OutOrStdout()

			if id != "" {
				run, err := rs.GetRun(ctx, id)
				if err != nil {
					return err
				}
				if jsonOut {
					return json.NewEncoder(w).Encode(run)
				}
				table := tablewriter.NewWriter(w)
				table.SetHeader([]string{"Series", "Period", "Mean"})
				for _, sm := range run.Series {
					table.Append([]string{sm.Name, fmt.Sprintf("%d", sm.Period), fmt.Sprintf("%.4f", sm.Mean)})
				}
				table.Render()
				return nil
			}

			runs, err := rs.ListRuns(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(w).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No saved runs.")
				return nil
			}

			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"ID", "Seed", "Replications", "Ration", "Created"})
			for _, r := range runs {
				table.Append([]string{
					r.ID,
					fmt.Sprintf("%d", r.Seed),
					fmt.Sprintf("%d", r.Replications),
					fmt.Sprintf("%.2f", r.Ration),
					r.CreatedAt.Format(time.RFC3339),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("id", "", "Show one saved run's series means")

	return cmd
}
