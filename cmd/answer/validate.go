package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"qa-ensemble/internal/batch"
	"qa-ensemble/internal/config"
)

func newValidateCmd() *cobra.Command {
	var (
		questions string
		answers   string
		maxLength int
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an answers file against its questions file",
		Long:  "Validates that the answers file holds one {\"output\": string} record per question and that every output is shorter than the length limit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// run gets .env through app.Build; validate only needs config.
			_ = godotenv.Load()
			cfg := config.Load()
			if questions == "" {
				questions = cfg.InputPath
			}
			if answers == "" {
				answers = cfg.OutputPath
			}
			if maxLength <= 0 {
				maxLength = cfg.MaxAnswerLength
			}
			if err := batch.ValidateFiles(questions, answers, maxLength); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid for %s\n", answers, questions)
			return nil
		},
	}
	cmd.Flags().StringVarP(&questions, "questions", "q", "", "Path to questions JSON (default INPUT_PATH)")
	cmd.Flags().StringVarP(&answers, "answers", "a", "", "Path to answers JSON (default OUTPUT_PATH)")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Exclusive limit on answer length (default MAX_ANSWER_LENGTH)")
	return cmd
}
