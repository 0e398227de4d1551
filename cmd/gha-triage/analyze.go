package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altinukshini/gha-triage/internal/ui"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [RUN_ID]",
		Short: "Show where each failed job of a run failed, without filing anything",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAnalyze,
	}
	addAnalysisFlags(cmd)
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := applyAnalysisFlags(cmd, a); err != nil {
		return err
	}
	id, err := runID(cmd, args, a)
	if err != nil {
		return err
	}
	svc, err := a.service()
	if err != nil {
		return err
	}
	run, results, err := svc.Analyze(cmd.Context(), id, a.buildKind())
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, ui.RenderResults(run, results, width(a.out)))
	return nil
}
