package main

import (
	"fmt"
	"os"
	"voxeval/internal/config"
	"voxeval/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "evaltool",
	Short: "Evaluate English speaking recordings from the command line",
	Long: `evaltool runs the speaking evaluation pipeline on a local recording and
its time-aligned transcript, printing the scores as JSON and writing the PDF
report next to it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if debug {
			cfg.Log.Debug = true
			cfg.Log.Level = "debug"
		}
		if err := logger.InitWithLevel(cfg.Log.Debug, cfg.Log.Level); err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
}
