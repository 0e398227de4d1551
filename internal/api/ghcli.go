package api

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	gh "github.com/cli/go-gh/v2"
	"golang.org/x/mod/semver"
)

// MinGhVersion is the oldest gh release whose `run view --log` output and
// issue commands behave as this tool expects.
const MinGhVersion = "2.43.1"

var ghVersionRe = regexp.MustCompile(`gh version (\d+\.\d+\.\d+)`)

// GhVersion reports the installed gh CLI version.
type GhVersion struct {
	Version string
	Raw     string
}

// Supported reports whether the version is at least MinGhVersion.
func (v GhVersion) Supported() bool {
	return VersionAtLeast(v.Version, MinGhVersion)
}

// VersionAtLeast compares two dotted versions, with or without a leading v.
func VersionAtLeast(have, want string) bool {
	h, w := canonical(have), canonical(want)
	if !semver.IsValid(h) || !semver.IsValid(w) {
		return false
	}
	return semver.Compare(h, w) >= 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// ParseGhVersion extracts the version from `gh --version` output.
func ParseGhVersion(out string) (GhVersion, error) {
	m := ghVersionRe.FindStringSubmatch(out)
	if m == nil {
		return GhVersion{Raw: out}, fmt.Errorf("unrecognized gh --version output: %q", strings.TrimSpace(out))
	}
	return GhVersion{Version: m[1], Raw: strings.TrimSpace(out)}, nil
}

// CheckGhVersion runs `gh --version`.
func CheckGhVersion(ctx context.Context) (GhVersion, error) {
	stdout, stderr, err := gh.ExecContext(ctx, "--version")
	if err != nil {
		return GhVersion{}, fmt.Errorf("run gh --version: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseGhVersion(stdout.String())
}
