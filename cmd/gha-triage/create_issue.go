package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/altinukshini/gha-triage/internal/config"
	"github.com/altinukshini/gha-triage/internal/triage"
	"github.com/altinukshini/gha-triage/internal/tui/confirm"
	"github.com/altinukshini/gha-triage/internal/ui"
)

func newCreateIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-issue-from-run [RUN_ID]",
		Short: "Create a GitHub issue from a failed workflow run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCreateIssue,
	}
	addAnalysisFlags(cmd)
	flags := cmd.Flags()
	flags.StringArrayP("label", "l", nil, "issue label (repeatable, or comma separated)")
	flags.String("title", "", "issue title")
	flags.Float64("threshold", 0, "similarity at or above which an open issue is a duplicate")
	flags.Float64("buffer", 0, "similarity range below the threshold that is inconclusive")
	flags.BoolP("no-duplicate", "n", true, "don't create the issue if a similar issue already exists")
	flags.String("policy", "", "what to do when the duplicate check is inconclusive (ask|create|skip)")
	return cmd
}

func runCreateIssue(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("label") {
		var labels []string
		values, _ := flags.GetStringArray("label")
		for _, v := range values {
			labels = append(labels, config.SplitLabels(v)...)
		}
		a.cfg.Labels = labels
	}
	if flags.Changed("title") {
		a.cfg.Title, _ = flags.GetString("title")
	}
	if flags.Changed("threshold") {
		a.cfg.Threshold, _ = flags.GetFloat64("threshold")
	}
	if flags.Changed("buffer") {
		a.cfg.Buffer, _ = flags.GetFloat64("buffer")
	}
	if flags.Changed("policy") {
		a.cfg.Policy, _ = flags.GetString("policy")
	}
	if err := applyAnalysisFlags(cmd, a); err != nil {
		return err
	}
	if len(a.cfg.Labels) == 0 {
		return fmt.Errorf("at least one issue label is required (use --label)")
	}
	policy, err := triage.ParsePolicy(a.cfg.Policy)
	if err != nil {
		return err
	}
	noDuplicate, _ := flags.GetBool("no-duplicate")

	id, err := runID(cmd, args, a)
	if err != nil {
		return err
	}
	svc, err := a.service()
	if err != nil {
		return err
	}
	if policy == triage.PolicyAsk && interactive() {
		svc.Confirm = confirm.Confirmer(os.Stdin, os.Stderr)
	}

	a.logger.Info("creating issue from failed run", "run_id", id, "kind", a.cfg.Kind, "labels", a.cfg.Labels)
	out, err := svc.CreateIssueFromRun(cmd.Context(), triage.Request{
		RunID:          id,
		Kind:           a.buildKind(),
		DryRun:         a.dryRun,
		SkipDuplicates: !noDuplicate,
		Policy:         policy,
	})
	if out.Run.ID != 0 {
		fmt.Fprint(a.out, ui.RenderOutcome(out, width(a.out)))
	}
	return err
}
