package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cli/go-gh/v2/pkg/repository"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/altinukshini/gha-triage/internal/api"
	"github.com/altinukshini/gha-triage/internal/cache"
	"github.com/altinukshini/gha-triage/internal/config"
	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/runfilter"
	"github.com/altinukshini/gha-triage/internal/triage"
	"github.com/altinukshini/gha-triage/internal/ui"
)

// sampleFixture selects the built-in fixture for --fake-github-cli.
const sampleFixture = "sample"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gha-triage",
		Short:         "Find why GitHub Actions runs failed and file issues for them",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringP("repo", "R", "", "repository in [HOST/]OWNER/REPO format (default: current git repository)")
	persistent.String("config", "", "config file (default: $XDG_CONFIG_HOME/gha-triage/config.yaml)")
	persistent.IntP("verbosity", "v", 2, "verbosity level (0-4)")
	persistent.Bool("dry-run", false, "run through a scenario without making changes")
	persistent.String("fake-github-cli", "", "use an in-memory GitHub seeded with the built-in sample, or with --fake-github-cli=PATH from a fixture file or directory")
	persistent.Lookup("fake-github-cli").NoOptDefVal = sampleFixture

	cmd.AddCommand(newCreateIssueCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newLocateCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// app is the state shared by subcommands after flags are parsed.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	dryRun bool
	out    io.Writer

	platform triage.Platform
	listRuns func(ctx context.Context) ([]model.Run, error)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gha-triage", "config.yaml")
}

// loadConfig applies defaults, the config file, GHA_TRIAGE_* variables and
// the persistent flags, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	flags := cmd.Flags()

	verbosity, err := flags.GetInt("verbosity")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("parse --verbosity: %w", err)
	}
	logger := newLogger(cmd.ErrOrStderr(), verbosity)

	path, _ := flags.GetString("config")
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, logger, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, logger, err
	}

	if flags.Changed("repo") {
		v, _ := flags.GetString("repo")
		if err := cfg.SetRepo(v); err != nil {
			return cfg, logger, err
		}
	}
	return cfg, logger, nil
}

// newApp loads the configuration and connects to GitHub, or to the fake
// platform when --fake-github-cli is given.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}
	a.dryRun, _ = cmd.Flags().GetBool("dry-run")
	if a.dryRun {
		logger.Warn("running in dry-run mode, no changes will be made")
	}

	fixture, _ := cmd.Flags().GetString("fake-github-cli")
	if fixture != "" {
		return a, a.useFake(fixture)
	}
	return a, a.useGitHub()
}

func (a *app) useFake(fixture string) error {
	f := triage.SampleFixture()
	if fixture != sampleFixture {
		var err error
		if f, err = triage.LoadFixture(fixture); err != nil {
			return fmt.Errorf("load fixture: %w", err)
		}
	}
	fake := triage.NewFakePlatform(f)
	a.logger.Info("using fake GitHub", "fixture", fixture, "runs", len(fake.RunIDs()))
	a.platform = fake
	a.listRuns = func(context.Context) ([]model.Run, error) { return fake.Runs(), nil }
	return nil
}

func (a *app) useGitHub() error {
	if a.cfg.Owner == "" || a.cfg.Repo == "" {
		repo, err := repository.Current()
		if err != nil {
			return fmt.Errorf("no repository given and none found in the current directory (use -R owner/repo): %w", err)
		}
		a.cfg.Host, a.cfg.Owner, a.cfg.Repo = repo.Host, repo.Owner, repo.Name
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	a.logger.Info("using GitHub repository", "repo", a.cfg.RepoNWO(), "host", a.cfg.Host)

	client, err := api.NewClient(a.cfg.Owner, a.cfg.Repo, api.Options{Host: a.cfg.Host})
	if err != nil {
		return err
	}
	logCache, err := cache.NewLogCache(a.cfg.CacheDir, a.cfg.CacheSizeMB, a.cfg.CacheTTL)
	if err != nil {
		return err
	}
	if err := logCache.Evict(); err != nil {
		a.logger.Warn("log cache eviction failed", "err", err)
	}
	p := api.NewPlatform(client, api.PlatformOptions{
		Cache:             logCache,
		Archives:          a.cfg.Archives,
		RequestsPerSecond: a.cfg.RequestsPerSecond,
		Logger:            a.logger,
	})
	a.platform = p
	a.listRuns = func(ctx context.Context) ([]model.Run, error) {
		return p.LatestRuns(ctx, api.RunsFilter{Status: string(model.RunStatusCompleted), PerPage: 100})
	}
	return nil
}

// latestFailedRun picks the newest failed run matching filter.
func (a *app) latestFailedRun(ctx context.Context, filter runfilter.Filter) (int64, error) {
	runs, err := a.listRuns(ctx)
	if err != nil {
		return 0, fmt.Errorf("list runs: %w", err)
	}
	run, err := runfilter.LatestFailed(runs, filter)
	if err != nil {
		return 0, err
	}
	a.logger.Info("selected latest failed run", "run_id", run.ID, "name", run.Name, "branch", run.HeadBranch)
	return run.ID, nil
}

// width is the terminal width of out, or ui.DefaultWidth.
func width(out io.Writer) int {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return ui.DefaultWidth
}

// interactive reports whether a prompt can be shown.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}
