// Package main provides the answer CLI: it answers a batch file of questions
// with the ensemble pipeline and checks answer files against the contract.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "answer",
		Short:         "Ensemble question answering",
		Long:          "answer rephrases each question several ways, samples an answer for every phrasing and keeps the majority answer.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
