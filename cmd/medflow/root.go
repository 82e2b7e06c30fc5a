package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medflow/internal/config"
	"medflow/internal/logging"
	"medflow/internal/tui"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "medflow",
	Short: "MedFlow is a demo medical triage wizard",
	Long: `MedFlow walks a patient through intake, a simulated AI symptom analysis,
knowledge retrieval and specialist routing, and ends with a mock diagnosis.
It is a demonstration only and must not be used for real medical decisions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if cmd.Flags().Changed("log-level") {
			loaded.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("delay-scale") {
			loaded.DelayScale, _ = cmd.Flags().GetFloat64("delay-scale")
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		cfg = loaded
		logging.Setup(cfg.LogLevel)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// markdownRenderer honours --style, falling back to terminal detection on
// stdout when it is unset.
func markdownRenderer(cmd *cobra.Command) (func(string) (string, error), error) {
	style, _ := cmd.Flags().GetString("style")
	if style == "" {
		return tui.NewRenderer(os.Stdout), nil
	}
	width, _ := cmd.Flags().GetInt("width")
	r, err := tui.NewStyledRenderer(style, width)
	if err != nil {
		return nil, fmt.Errorf("style %q: %w", style, err)
	}
	return r, nil
}

func init() {
	rootCmd.PersistentFlags().String("style", "", "Glamour style for markdown output, e.g. dark, light or notty (default: detect terminal)")
	rootCmd.PersistentFlags().Int("width", 80, "Word wrap width used with --style")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (overrides MEDFLOW_LOG_LEVEL)")
	rootCmd.PersistentFlags().Float64("delay-scale", 1, "Multiplier for simulated AI delays, 0 disables them (overrides MEDFLOW_DELAY_SCALE)")
}
