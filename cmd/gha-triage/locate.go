package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/altinukshini/gha-triage/internal/locate"
	"github.com/altinukshini/gha-triage/internal/summarize"
)

func newLocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate-failure-log [LOG_FILE]",
		Short: "Locate the specific failure log in a failed build log read from a file or stdin",
		Long: `Locate the specific failure log in a failed build log.

For a Yocto build this prints the absolute path of the task log named by
"Logfile of failure stored in", e.g. a log.do_fetch.1234 file. With --summary,
or for other kinds of build, the failure is summarized instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLocate,
	}
	flags := cmd.Flags()
	flags.StringP("kind", "k", "yocto", "kind of build (yocto|generic)")
	flags.StringArray("root", nil, "directory to resolve relative failure log paths against (repeatable)")
	flags.Bool("summary", false, "print the summarized failure instead of the log path")
	return cmd
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	kindName, _ := flags.GetString("kind")
	kind, err := locate.ParseBuildKind(kindName)
	if err != nil {
		logger.Warn("unrecognized build kind, using generic heuristics", "kind", kindName)
	}
	roots, _ := flags.GetStringArray("root")
	if len(roots) == 0 {
		if wd, err := os.Getwd(); err == nil {
			roots = []string{wd}
		}
	}
	fs := locate.FileSystem{Roots: roots, MaxBytes: int64(cfg.MaxLogBytes)}

	var text []byte
	if len(args) == 1 {
		logger.Info("reading log file", "path", args[0])
		text, err = os.ReadFile(args[0])
	} else {
		logger.Info("reading log from stdin")
		text, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}

	summary, _ := flags.GetBool("summary")
	if kind == locate.Yocto && !summary {
		path, err := locate.FailureLogPath(string(text), fs)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	sum, err := summarize.New(cfg.Rules())
	if err != nil {
		return err
	}
	frag := locate.New(cfg.MaxDepth, fs, logger).LocateText(string(text), kind)
	s := sum.Summarize(frag)
	if s.Len() == 0 {
		return errors.New("log has no failure evidence")
	}
	logger.Debug("located failure", "source", frag.Provenance.Source(), "rank", frag.Provenance.Rank)
	fmt.Fprint(cmd.OutOrStdout(), s.Text())
	return nil
}
