package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mhusted/schoolsim/internal/config"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "schoolsim",
		Short: "Two-period schooling and effort model",
		Long: `schoolsim simulates a two-period dynamic discrete-choice model of
schooling with a continuous effort margin, estimates static and dynamic
CCP specifications on the simulated choices, and evaluates both against
a college-rationing counterfactual.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSimulateCmd(),
		newRunsCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "schoolsim version %s\n", version)
			}
		},
	}
}

// loadConfig loads the config file (if any) and applies command-line
// overrides shared by the run and simulate commands.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		cfg.Panel.Seed = seed
	}
	if cmd.Flags().Changed("replications") {
		reps, _ := cmd.Flags().GetInt("replications")
		cfg.Panel.Replications = reps
	}
	if cmd.Flags().Changed("base-size") {
		n, _ := cmd.Flags().GetInt("base-size")
		cfg.Panel.BaseSize = n
	}
	if cmd.Flags().Changed("base-csv") {
		path, _ := cmd.Flags().GetString("base-csv")
		cfg.Panel.BaseCSV = path
	}
	if cmd.Flags().Changed("ration") {
		r, _ := cmd.Flags().GetFloat64("ration")
		cfg.Model.Ration = r
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// addPanelFlags registers the shared panel/model flags.
func addPanelFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", 42, "Random seed")
	cmd.Flags().Int("replications", 10, "Base-sample replication factor")
	cmd.Flags().Int("base-size", 500, "Synthetic base-sample size")
	cmd.Flags().String("base-csv", "", "CSV of base individuals (id,white,south)")
	cmd.Flags().Float64("ration", 0.5, "Counterfactual admission fraction")
}
