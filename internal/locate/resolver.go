package locate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Resolver looks up the content of a nested log referenced from another log.
// name identifies the source the text was read from.
type Resolver interface {
	Resolve(logPath string) (name, text string, ok bool)
}

// Chain tries each resolver in order.
type Chain []Resolver

func (c Chain) Resolve(logPath string) (string, string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if name, text, ok := r.Resolve(logPath); ok {
			return name, text, true
		}
	}
	return "", "", false
}

var (
	groupStart = regexp.MustCompile(`^##\[group\](.*)$`)
	groupEnd   = "##[endgroup]"
	tailHeader = regexp.MustCompile(`^==> (.+) <==$`)
	pathToken  = regexp.MustCompile(`[a-zA-Z0-9_./-]+/[a-zA-Z0-9_.-]+`)
)

// Blocks resolves nested logs that were printed into the job log, either as
// a collapsed group whose title names the file
//
//	##[group]/build/tmp/work/.../temp/log.do_fetch.21616
//	...
//	##[endgroup]
//
// or under a `tail -v` style header (`==> path <==`), which runs until the
// next header or group boundary.
type Blocks struct {
	byPath map[string]block
	byBase map[string]block
}

type block struct {
	name string
	text string
}

// EmbeddedBlocks indexes the nested log blocks found in text. When the same
// file is printed twice the first block wins.
func EmbeddedBlocks(text string) *Blocks {
	b := &Blocks{byPath: map[string]block{}, byBase: map[string]block{}}

	var (
		name string
		body strings.Builder
		open bool
	)
	flush := func() {
		if open {
			b.add(name, body.String())
		}
		open = false
		body.Reset()
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		if m := groupStart.FindStringSubmatch(trimmed); m != nil {
			flush()
			if p := pathToken.FindString(m[1]); p != "" {
				name, open = p, true
			}
			continue
		}
		if m := tailHeader.FindStringSubmatch(trimmed); m != nil {
			flush()
			name, open = strings.TrimSpace(m[1]), true
			continue
		}
		if trimmed == groupEnd {
			flush()
			continue
		}
		if open {
			body.WriteString(line)
		}
	}
	flush()
	return b
}

func (b *Blocks) add(name, text string) {
	blk := block{name: name, text: text}
	if _, ok := b.byPath[name]; !ok {
		b.byPath[name] = blk
	}
	base := path.Base(name)
	if _, ok := b.byBase[base]; !ok {
		b.byBase[base] = blk
	}
}

// Len returns the number of distinct blocks found.
func (b *Blocks) Len() int { return len(b.byPath) }

// Resolve matches by full path first, then by file name, since the build
// may have run under a different mount point than the one printed.
func (b *Blocks) Resolve(logPath string) (string, string, bool) {
	if blk, ok := b.byPath[logPath]; ok {
		return blk.name, blk.text, true
	}
	if blk, ok := b.byBase[path.Base(logPath)]; ok {
		return blk.name, blk.text, true
	}
	return "", "", false
}

// FileSystem resolves nested logs on the local disk. A path that does not
// exist as written is retried with its leading components removed, both
// relative to each root and from the filesystem root, to cope with builds
// that ran inside a container with a different mount point.
type FileSystem struct {
	Roots []string
	// MaxBytes limits how much of the end of a file is read. Zero reads
	// the whole file.
	MaxBytes int64
}

func (fs FileSystem) Resolve(logPath string) (string, string, bool) {
	found, ok := fs.Find(logPath)
	if !ok {
		return "", "", false
	}
	text, err := readTail(found, fs.MaxBytes)
	if err != nil {
		return "", "", false
	}
	return found, text, true
}

// Find returns the absolute path of the first existing regular file
// matching logPath.
func (fs FileSystem) Find(logPath string) (string, bool) {
	logPath = filepath.Clean(strings.TrimSpace(logPath))
	if isFile(logPath) {
		return absolute(logPath), true
	}

	roots := fs.Roots
	if len(roots) == 0 {
		roots = []string{"."}
	}
	parts := strings.Split(filepath.ToSlash(logPath), "/")
	for i := range parts {
		rest := filepath.Join(parts[i:]...)
		if rest == "" || rest == "." {
			continue
		}
		for _, root := range roots {
			if candidate := filepath.Join(root, rest); isFile(candidate) {
				return absolute(candidate), true
			}
		}
		if candidate := string(filepath.Separator) + rest; isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// FirstPath returns the first path-like token in s.
func FirstPath(s string) string {
	return pathToken.FindString(s)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func readTail(p string, limit int64) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if limit > 0 {
		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		if info.Size() > limit {
			if _, err := f.Seek(info.Size()-limit, io.SeekStart); err != nil {
				return "", err
			}
		}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ErrLogNotFound means a referenced failure log does not exist on disk.
var ErrLogNotFound = errors.New("failure log not found")

// FailureLogPath finds the first failure-log reference in text and returns
// the absolute path of the file on disk.
func FailureLogPath(text string, fs FileSystem) (string, error) {
	marker, ok := yoctoMarkers.FirstIn(text)
	if !ok {
		return "", fmt.Errorf("%w: no %q line", ErrNoFailureEvidence, FailureLogMarker)
	}
	_, after, _ := strings.Cut(marker.Content, FailureLogMarker)
	logPath := FirstPath(after)
	if logPath == "" {
		return "", fmt.Errorf("%w: no path on line %d", ErrNoFailureEvidence, marker.Line)
	}
	found, ok := fs.Find(logPath)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrLogNotFound, logPath)
	}
	return found, nil
}
