package locate

import (
	"log/slog"
	"strings"

	"github.com/altinukshini/gha-triage/internal/model"
	"github.com/altinukshini/gha-triage/internal/search"
)

// Heuristic narrows a step-scoped fragment for one build system.
type Heuristic interface {
	Kind() BuildKind
	Refine(top model.Fragment, r Resolver, maxDepth int) model.Fragment
}

func heuristicFor(kind BuildKind, logger *slog.Logger) Heuristic {
	switch kind {
	case Yocto:
		return yoctoHeuristic{logger: logger}
	default:
		return genericHeuristic{}
	}
}

type genericHeuristic struct{}

func (genericHeuristic) Kind() BuildKind { return Generic }

func (genericHeuristic) Refine(top model.Fragment, _ Resolver, _ int) model.Fragment {
	return top
}

// FailureLogMarker is printed by BitBake next to the path of a failed task's
// log, e.g. "ERROR: Logfile of failure stored in: /build/tmp/.../log.do_fetch.21616".
const FailureLogMarker = "Logfile of failure stored in"

var yoctoMarkers = search.MustCompileSet([]search.Query{
	{Pattern: FailureLogMarker, CaseSensitive: true},
})

type yoctoHeuristic struct {
	logger *slog.Logger
}

func (yoctoHeuristic) Kind() BuildKind { return Yocto }

// Refine follows failure-log references from fragment to nested log until
// none is left, the reference cannot be resolved, or maxDepth nested logs
// have been entered. The deepest fragment reached is returned.
func (y yoctoHeuristic) Refine(top model.Fragment, r Resolver, maxDepth int) model.Fragment {
	best := top
	visited := map[string]bool{}

	for depth := 0; depth < maxDepth; depth++ {
		marker, ok := yoctoMarkers.FirstIn(best.Text)
		if !ok {
			break
		}
		_, after, _ := strings.Cut(marker.Content, FailureLogMarker)
		logPath := FirstPath(after)
		if logPath == "" {
			break
		}
		if best.Provenance.Task == "" {
			best.Provenance.Task = string(TaskKindFromPath(logPath))
		}
		if visited[logPath] || r == nil {
			break
		}
		visited[logPath] = true

		name, text, ok := r.Resolve(logPath)
		if !ok || strings.TrimSpace(text) == "" {
			y.logger.Debug("nested log not resolvable", "path", logPath, "rank", best.Provenance.Rank)
			break
		}

		prov := best.Provenance
		prov.Nested = append(append([]string(nil), prov.Nested...), name)
		prov.Rank++
		prov.Task = string(TaskKindFromPath(logPath))
		best = model.WholeFragment(text, prov)
		y.logger.Debug("entered nested log", "path", name, "rank", prov.Rank)
	}
	return best
}
