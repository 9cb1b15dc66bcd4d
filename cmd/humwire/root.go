package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/humwire/humwire/engine/domain"
)

// commandContext carries the persistent flags shared by every subcommand.
type commandContext struct {
	presetsFile string
	jsonOutput  bool
	verbose     bool
}

// registry returns the built-in presets plus any loaded from --presets.
func (c *commandContext) registry() (*domain.Registry, error) {
	r := domain.NewRegistry()
	if c.presetsFile == "" {
		return r, nil
	}
	if _, err := r.LoadPresets(c.presetsFile); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "humwire",
		Short:         "Humbucker wiring assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.presetsFile, "presets", "", "YAML file with additional color presets")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Write JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newPresetsCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newPhaseCommand(ctx))
	rootCmd.AddCommand(newAskCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))

	return rootCmd
}
