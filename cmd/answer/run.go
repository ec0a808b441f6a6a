package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"qa-ensemble/internal/app"
	"qa-ensemble/internal/batch"
)

type runOptions struct {
	input      string
	output     string
	flushCache bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer every question in a questions file",
		Long:  "Reads a JSON list of {\"input\": ...} records, answers each one and writes a JSON list of {\"output\": ...} records in the same order.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnswer(ctx, cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "in", "i", "", "Path to questions JSON (default INPUT_PATH)")
	cmd.Flags().StringVarP(&opts.output, "out", "o", "", "Path to answers JSON (default OUTPUT_PATH)")
	cmd.Flags().BoolVar(&opts.flushCache, "flush-cache", false, "Drop cached answers before running")
	return cmd
}

func runAnswer(ctx context.Context, cmd *cobra.Command, opts runOptions) error {
	deps, err := app.Build()
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer deps.Close()

	input := opts.input
	if input == "" {
		input = deps.Config.InputPath
	}
	output := opts.output
	if output == "" {
		output = deps.Config.OutputPath
	}

	if opts.flushCache {
		if err := deps.Cache.Flush(ctx); err != nil {
			return fmt.Errorf("failed to flush answer cache: %w", err)
		}
		deps.Log.Info("answer cache flushed")
	}

	records, err := batch.LoadQuestions(input)
	if err != nil {
		return err
	}
	questions := batch.Questions(records)
	deps.Log.Info("answering questions", "count", len(questions), "input", input)

	results, err := deps.Pipeline.Run(ctx, questions)
	if err != nil {
		return fmt.Errorf("interrupted after %d of %d questions: %w", len(results), len(questions), err)
	}

	if err := batch.WriteAnswers(output, batch.Answers(results)); err != nil {
		return err
	}
	if err := batch.ValidateFiles(input, output, deps.Config.MaxAnswerLength); err != nil {
		return fmt.Errorf("answers written to %s but failed validation: %w", output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d answers to %s (validated)\n", len(results), output)
	return nil
}
