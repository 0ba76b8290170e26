package main

import (
	"fmt"
	"voxeval/internal/llm"

	"github.com/spf13/cobra"
)

var topic string

var hintsCmd = &cobra.Command{
	Use:   "hints",
	Short: "Suggest talking points for a practice topic",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		gen, err := llm.New(cmd.Context(), cfg.LLMOptions())
		if err != nil {
			return err
		}

		points, err := llm.NewFeedback(gen).Hints(cmd.Context(), topic)
		if err != nil {
			return err
		}
		for i, p := range points {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, p)
		}
		return nil
	},
}

func init() {
	hintsCmd.Flags().StringVar(&topic, "topic", "", "practice topic")
	_ = hintsCmd.MarkFlagRequired("topic")

	rootCmd.AddCommand(hintsCmd)
}
