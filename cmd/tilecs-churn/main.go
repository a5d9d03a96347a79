package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/oliverbestmann/tilecs/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath  string
		profileMode string
		overrides   config.WorkloadConfig
	)

	cmd := &cobra.Command{
		Use:          "tilecs-churn",
		Short:        "Run a synthetic tile entity workload against independent managers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()

			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}

				cfg = loaded
			}

			applyOverrides(cmd, &cfg.Workload, overrides)

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			defer func() { _ = logger.Sync() }()

			slog.SetDefault(slog.New(newSlogHandler(logger)))

			switch profileMode {
			case "":
			case "cpu":
				defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
			case "mem":
				defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
			default:
				return fmt.Errorf("unknown profile mode %q", profileMode)
			}

			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	flags.StringVar(&profileMode, "profile", "", "write a cpu or mem profile to the working directory")
	flags.IntVar(&overrides.Worlds, "worlds", 0, "number of independent managers")
	flags.IntVar(&overrides.Entities, "entities", 0, "entities per world")
	flags.IntVar(&overrides.Ticks, "ticks", 0, "ticks to simulate")
	flags.Float64Var(&overrides.Churn, "churn", 0, "fraction of entities mutated per tick")
	flags.Uint64Var(&overrides.Seed, "seed", 0, "random seed")
	flags.StringVar(&overrides.Schema, "schema", "", "component schema file (toml or yaml)")

	return cmd
}

// applyOverrides copies flags that were set on the command line into the workload.
func applyOverrides(cmd *cobra.Command, workload *config.WorkloadConfig, overrides config.WorkloadConfig) {
	flags := cmd.Flags()

	if flags.Changed("worlds") {
		workload.Worlds = overrides.Worlds
	}

	if flags.Changed("entities") {
		workload.Entities = overrides.Entities
	}

	if flags.Changed("ticks") {
		workload.Ticks = overrides.Ticks
	}

	if flags.Changed("churn") {
		workload.Churn = overrides.Churn
	}

	if flags.Changed("seed") {
		workload.Seed = overrides.Seed
	}

	if flags.Changed("schema") {
		workload.Schema = overrides.Schema
	}
}
