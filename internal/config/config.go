// Package config holds the settings shared by every gha-triage command.
// Values come from defaults, an optional YAML file and GHA_TRIAGE_*
// environment variables, in that order; flags are applied last by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/altinukshini/gha-triage/internal/cache"
	"github.com/altinukshini/gha-triage/internal/dedup"
	"github.com/altinukshini/gha-triage/internal/issue"
	"github.com/altinukshini/gha-triage/internal/locate"
	"github.com/altinukshini/gha-triage/internal/summarize"
	"github.com/altinukshini/gha-triage/internal/triage"
)

const EnvPrefix = "GHA_TRIAGE_"

type Config struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Host  string `yaml:"host"`

	Labels []string `yaml:"labels"`
	Kind   string   `yaml:"kind"`
	Title  string   `yaml:"title"`
	Policy string   `yaml:"policy"`

	Threshold float64 `yaml:"threshold"`
	Buffer    float64 `yaml:"buffer"`

	MaxLines    int `yaml:"max_lines"`
	Window      int `yaml:"window"`
	TailLines   int `yaml:"tail_lines"`
	MaxDepth    int `yaml:"max_depth"`
	MaxLogBytes int `yaml:"max_log_bytes"`
	Parallelism int `yaml:"parallelism"`

	CacheDir          string        `yaml:"cache_dir"`
	CacheSizeMB       int           `yaml:"cache_size_mb"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	// Archives downloads whole run log archives so step logs need no
	// timestamp slicing.
	Archives bool `yaml:"archives"`
}

func Default() Config {
	return Config{
		Host:              "github.com",
		Kind:              string(locate.Generic),
		Title:             issue.DefaultTitle,
		Policy:            string(triage.PolicyAsk),
		Threshold:         dedup.DefaultThreshold,
		Buffer:            dedup.DefaultBuffer,
		MaxLines:          summarize.DefaultMaxLines,
		Window:            summarize.DefaultWindow,
		TailLines:         summarize.DefaultTailLines,
		MaxDepth:          locate.DefaultMaxDepth,
		MaxLogBytes:       issue.DefaultMaxLogBytes,
		Parallelism:       triage.DefaultParallelism,
		CacheDir:          cache.DefaultDir(),
		CacheSizeMB:       500,
		CacheTTL:          24 * time.Hour,
		RequestsPerSecond: 10,
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from GHA_TRIAGE_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}

	if v, ok := get("REPO"); ok {
		if err := c.SetRepo(v); err != nil {
			errs = append(errs, fmt.Errorf("%sREPO: %w", EnvPrefix, err))
		}
	}
	str("HOST", &c.Host)
	str("KIND", &c.Kind)
	str("TITLE", &c.Title)
	str("POLICY", &c.Policy)
	str("CACHE_DIR", &c.CacheDir)
	if v, ok := get("LABELS"); ok {
		c.Labels = SplitLabels(v)
	}
	float("THRESHOLD", &c.Threshold)
	float("BUFFER", &c.Buffer)
	float("REQUESTS_PER_SECOND", &c.RequestsPerSecond)
	num("MAX_LINES", &c.MaxLines)
	num("WINDOW", &c.Window)
	num("TAIL_LINES", &c.TailLines)
	num("MAX_DEPTH", &c.MaxDepth)
	num("MAX_LOG_BYTES", &c.MaxLogBytes)
	num("PARALLELISM", &c.Parallelism)
	num("CACHE_SIZE_MB", &c.CacheSizeMB)
	if v, ok := get("CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCACHE_TTL: %w", EnvPrefix, err))
		} else {
			c.CacheTTL = d
		}
	}
	if v, ok := get("ARCHIVES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sARCHIVES: %w", EnvPrefix, err))
		} else {
			c.Archives = b
		}
	}
	return errors.Join(errs...)
}

// SetRepo parses an owner/repo pair, optionally prefixed by a host.
func (c *Config) SetRepo(nwo string) error {
	parts := strings.Split(strings.Trim(nwo, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		c.Owner, c.Repo = parts[0], parts[1]
	case len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "":
		c.Host, c.Owner, c.Repo = parts[0], parts[1], parts[2]
	default:
		return fmt.Errorf("repo must be in owner/repo format, got %q", nwo)
	}
	return nil
}

// SplitLabels splits a comma separated label list, dropping blanks.
func SplitLabels(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (c Config) RepoNWO() string {
	return fmt.Sprintf("%s/%s", c.Owner, c.Repo)
}

func (c Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("owner and repo are required (use -R owner/repo)")
	}
	return c.ValidateAnalysis()
}

// ValidateAnalysis checks the settings used by offline commands, which
// need no repository.
func (c Config) ValidateAnalysis() error {
	if _, err := triage.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if err := (dedup.Detector{Threshold: c.Threshold, Buffer: c.Buffer}).Validate(); err != nil {
		return err
	}
	if c.MaxLines <= 0 {
		return fmt.Errorf("max_lines must be > 0, got %d", c.MaxLines)
	}
	if c.Window < 0 {
		return fmt.Errorf("window must be >= 0, got %d", c.Window)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must be >= 0, got %d", c.Parallelism)
	}
	return nil
}

// BuildKind parses Kind. An unrecognized kind is returned with an error
// wrapping locate.ErrUnrecognizedBuildKind; the locator treats it as generic.
func (c Config) BuildKind() (locate.BuildKind, error) {
	return locate.ParseBuildKind(c.Kind)
}

// Rules returns the default summary rules with the configured limits.
func (c Config) Rules() summarize.Rules {
	r := summarize.DefaultRules()
	r.MaxLines = c.MaxLines
	r.Window = c.Window
	r.TailLines = c.TailLines
	return r
}

func (c Config) Detector() dedup.Detector {
	return dedup.Detector{Threshold: c.Threshold, Buffer: c.Buffer}
}

// Composer returns an issue composer for the configured repository.
func (c Config) Composer() *issue.Composer {
	comp := issue.NewComposer("", c.Labels...)
	comp.Host = c.Host
	if c.Owner != "" && c.Repo != "" {
		comp.RepoURL = c.RepoNWO()
	}
	if c.Title != "" {
		comp.Title = c.Title
	}
	if c.MaxLogBytes > 0 {
		comp.MaxLogBytes = c.MaxLogBytes
	}
	return comp
}
