package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/altinukshini/gha-triage/internal/locate"
	"github.com/altinukshini/gha-triage/internal/runfilter"
	"github.com/altinukshini/gha-triage/internal/summarize"
	"github.com/altinukshini/gha-triage/internal/triage"
)

// addAnalysisFlags registers the flags shared by analyze and
// create-issue-from-run.
func addAnalysisFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("run-id", "r", "", "workflow run ID")
	flags.Bool("latest", false, "use the newest failed run instead of --run-id")
	flags.String("workflow", "", "with --latest, only consider runs of this workflow")
	flags.String("branch", "", "with --latest, only consider runs on this branch")
	flags.StringP("kind", "k", "", "kind of build (yocto|generic)")
	flags.Int("max-lines", 0, "maximum summary lines per job")
	flags.Int("parallelism", 0, "jobs analysed concurrently")
}

// applyAnalysisFlags copies the changed analysis flags into a.cfg.
func applyAnalysisFlags(cmd *cobra.Command, a *app) error {
	flags := cmd.Flags()
	if flags.Changed("kind") {
		a.cfg.Kind, _ = flags.GetString("kind")
	}
	if flags.Changed("max-lines") {
		a.cfg.MaxLines, _ = flags.GetInt("max-lines")
	}
	if flags.Changed("parallelism") {
		a.cfg.Parallelism, _ = flags.GetInt("parallelism")
	}
	return a.cfg.ValidateAnalysis()
}

// runID resolves --run-id, a positional ID or --latest.
func runID(cmd *cobra.Command, args []string, a *app) (int64, error) {
	flags := cmd.Flags()
	raw, _ := flags.GetString("run-id")
	if raw == "" && len(args) > 0 {
		raw = args[0]
	}
	latest, _ := flags.GetBool("latest")
	switch {
	case raw != "" && latest:
		return 0, errors.New("--run-id and --latest are mutually exclusive")
	case raw != "":
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid run ID %q", raw)
		}
		return id, nil
	case latest:
		var filter runfilter.Filter
		filter.WorkflowName, _ = flags.GetString("workflow")
		filter.Branch, _ = flags.GetString("branch")
		return a.latestFailedRun(cmd.Context(), filter)
	default:
		return 0, errors.New("a run ID is required (use --run-id or --latest)")
	}
}

// buildKind parses the configured kind. Unknown kinds are analysed as
// generic after a warning.
func (a *app) buildKind() locate.BuildKind {
	kind, err := a.cfg.BuildKind()
	if err != nil {
		a.logger.Warn("unrecognized build kind, using generic heuristics", "kind", a.cfg.Kind)
	}
	return kind
}

// service wires the analysis pipeline from the configuration.
func (a *app) service() (*triage.Service, error) {
	sum, err := summarize.New(a.cfg.Rules())
	if err != nil {
		return nil, err
	}
	analyzer := triage.NewAnalyzer(
		locate.New(a.cfg.MaxDepth, nil, a.logger),
		sum,
		a.cfg.Composer(),
		a.logger,
	)
	if a.cfg.Parallelism > 0 {
		analyzer.Parallelism = a.cfg.Parallelism
	}
	return &triage.Service{
		Platform:    a.platform,
		Analyzer:    analyzer,
		Detector:    a.cfg.Detector(),
		Parallelism: a.cfg.Parallelism,
		Logger:      a.logger,
	}, nil
}
