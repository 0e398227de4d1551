// Package locate finds the log fragment that best explains a failed job.
package locate

import (
	"fmt"
	"strings"
)

// BuildKind selects the build-system heuristic applied on top of the
// step-scoped log.
type BuildKind string

const (
	Generic BuildKind = "generic"
	Yocto   BuildKind = "yocto"
)

// Kinds lists the recognized build kinds.
var Kinds = []BuildKind{Generic, Yocto}

// Known reports whether k has a dedicated heuristic.
func (k BuildKind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k BuildKind) String() string { return string(k) }

// ParseBuildKind accepts the kind names case-insensitively; "other" and the
// empty string mean Generic. Unknown names are returned as-is along with an
// error wrapping ErrUnrecognizedBuildKind, so callers can warn and go on.
func ParseBuildKind(s string) (BuildKind, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "other", string(Generic):
		return Generic, nil
	case string(Yocto), "bitbake":
		return Yocto, nil
	default:
		return BuildKind(v), fmt.Errorf("%w: %q", ErrUnrecognizedBuildKind, s)
	}
}
