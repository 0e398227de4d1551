// Package cache keeps downloaded run log archives and job logs on disk so
// that repeated triage of the same run does not hit the API again.
package cache

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/altinukshini/gha-triage/internal/logs"
	"github.com/altinukshini/gha-triage/internal/model"
)

type LogCache struct {
	dir     string
	maxSize int64         // max total cache size in bytes
	ttl     time.Duration // cache entry TTL
}

// CacheMeta stores metadata about a cached run.
type CacheMeta struct {
	Repo         string    `json:"repo"`
	RunID        int64     `json:"run_id"`
	Attempt      int       `json:"attempt"`
	WorkflowName string    `json:"workflow_name"`
	DisplayTitle string    `json:"display_title"`
	Branch       string    `json:"branch"`
	Event        string    `json:"event"`
	Conclusion   string    `json:"conclusion"`
	CreatedAt    time.Time `json:"created_at"`
	StoredAt     time.Time `json:"stored_at"`
}

// MetaFor builds the cache metadata of a run.
func MetaFor(repo string, run model.Run) CacheMeta {
	return CacheMeta{
		Repo:         repo,
		RunID:        run.ID,
		Attempt:      run.RunAttempt,
		WorkflowName: run.Name,
		DisplayTitle: run.DisplayTitle,
		Branch:       run.HeadBranch,
		Event:        run.Event,
		Conclusion:   string(run.Conclusion),
		CreatedAt:    run.CreatedAt,
		StoredAt:     time.Now(),
	}
}

// CacheEntry represents a single cached run with computed fields.
type CacheEntry struct {
	CacheMeta
	LastAccessed time.Time
	Size         int64
	Path         string
}

func NewLogCache(dir string, maxSizeMB int, ttl time.Duration) (*LogCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log cache dir: %w", err)
	}
	return &LogCache{
		dir:     dir,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		ttl:     ttl,
	}, nil
}

// DefaultDir is the per-user cache location, falling back to the temp dir.
func DefaultDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "gha-triage", "logs")
}

func (lc *LogCache) Dir() string { return lc.dir }

func (lc *LogCache) runDir(runID int64, attempt int) string {
	if attempt < 1 {
		attempt = 1
	}
	return filepath.Join(lc.dir, fmt.Sprintf("run-%d-attempt-%d", runID, attempt))
}

func (lc *LogCache) fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < lc.ttl
}

// HasRun reports whether an unexpired archive for the run attempt is stored.
func (lc *LogCache) HasRun(runID int64, attempt int) bool {
	dir := lc.runDir(runID, attempt)
	info, err := os.Stat(filepath.Join(dir, archiveMarker))
	if err != nil {
		return false
	}
	return !info.IsDir() && time.Since(info.ModTime()) < lc.ttl
}

// archiveMarker is written once a run archive has been fully extracted.
const archiveMarker = ".archive"

// StoreRunLogs extracts a zip archive of run logs to the cache directory.
// Returns a map of archive entry names to local file paths.
func (lc *LogCache) StoreRunLogs(runID int64, attempt int, zipData io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(zipData)
	if err != nil {
		return nil, fmt.Errorf("read zip data: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	dir := lc.runDir(runID, attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}

	files := make(map[string]string)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		localPath := filepath.Join(dir, filepath.Clean("/"+f.Name))
		if !strings.HasPrefix(localPath, dir+string(filepath.Separator)) {
			return nil, fmt.Errorf("archive entry %q escapes cache dir", f.Name)
		}
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, err
		}
		if err := extract(f, localPath); err != nil {
			return nil, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		files[f.Name] = localPath
	}
	if err := os.WriteFile(filepath.Join(dir, archiveMarker), nil, 0o644); err != nil {
		return nil, err
	}
	return files, nil
}

func extract(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// StepLogs returns the per-step logs of job from a stored run archive. The
// archive holds a "<job>/<n>_<step>.txt" file per step; when the job has no
// such directory the root-level "<i>_<job>.txt" file is sliced by timestamp.
func (lc *LogCache) StepLogs(runID int64, attempt int, job model.Job) ([]model.StepLog, error) {
	dir := lc.runDir(runID, attempt)
	if jobDir, ok := findJobDir(dir, job.Name); ok {
		return readStepFiles(jobDir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read run dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		if parseRootLogName(name) != archiveName(job.Name) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		return logs.SliceByTimestamps(string(data), job.Steps), nil
	}
	return nil, fmt.Errorf("no logs for job %q in run %d", job.Name, runID)
}

func findJobDir(dir, jobName string) (string, bool) {
	for _, name := range []string{jobName, archiveName(jobName)} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// archiveName mirrors the way run archives replace characters that are not
// valid in file names.
func archiveName(jobName string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, jobName)
}

func readStepFiles(jobDir string) ([]model.StepLog, error) {
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		return nil, fmt.Errorf("read job dir: %w", err)
	}
	var out []model.StepLog
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		number, name := parseStepLogName(e.Name())
		data, err := os.ReadFile(filepath.Join(jobDir, e.Name()))
		if err != nil {
			return nil, err
		}
		text := string(data)
		if lines := logs.SliceByTimestamps(text, []model.Step{{Number: number, Name: name}}); len(lines) == 1 {
			text = lines[0].Text
		}
		out = append(out, model.StepLog{Number: number, Name: name, Text: text})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// parseRootLogName extracts the job name from a root-level log filename.
// GitHub Actions zips contain files like "0_Build & Deploy.txt" where the
// number prefix is the job index. This returns "Build & Deploy".
func parseRootLogName(filename string) string {
	_, name := parseStepLogName(filename)
	return name
}

// parseStepLogName splits "3_Run tests.txt" into 3 and "Run tests". The
// number is 0 when the name has no numeric prefix.
func parseStepLogName(filename string) (int, string) {
	name := strings.TrimSuffix(filename, ".txt")
	prefix, rest, found := strings.Cut(name, "_")
	if !found {
		return 0, name
	}
	n, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, name
	}
	return n, rest
}

func (lc *LogCache) jobLogPath(runID int64, attempt int, jobID int64) string {
	return filepath.Join(lc.runDir(runID, attempt), fmt.Sprintf("job-%d.log", jobID))
}

// StoreJobLog keeps the raw log of a single job.
func (lc *LogCache) StoreJobLog(runID int64, attempt int, jobID int64, text string) error {
	path := lc.jobLogPath(runID, attempt, jobID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create run log dir: %w", err)
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// JobLog returns a stored, unexpired job log.
func (lc *LogCache) JobLog(runID int64, attempt int, jobID int64) (string, bool) {
	path := lc.jobLogPath(runID, attempt, jobID)
	if !lc.fresh(path) {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Evict removes expired and oversized cache entries.
func (lc *LogCache) Evict() error {
	type cacheEntry struct {
		path    string
		modTime time.Time
		size    int64
	}

	var entries []cacheEntry
	var totalSize int64

	err := filepath.Walk(lc.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		entries = append(entries, cacheEntry{path: path, modTime: info.ModTime(), size: info.Size()})
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		return err
	}

	// Evict expired entries
	now := time.Now()
	remaining := entries[:0]
	for _, e := range entries {
		if now.Sub(e.modTime) > lc.ttl {
			os.Remove(e.path)
			totalSize -= e.size
		} else {
			remaining = append(remaining, e)
		}
	}
	entries = remaining

	// Evict oldest entries if over size cap
	if totalSize > lc.maxSize {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].modTime.Before(entries[j].modTime)
		})
		for _, e := range entries {
			if totalSize <= lc.maxSize {
				break
			}
			os.Remove(e.path)
			totalSize -= e.size
		}
	}
	return nil
}

// WriteMeta writes meta.json in the entry's directory.
func (lc *LogCache) WriteMeta(meta CacheMeta) error {
	dir := lc.runDir(meta.RunID, meta.Attempt)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o644)
}

// ReadMeta reads meta.json from a cache entry.
func (lc *LogCache) ReadMeta(runID int64, attempt int) (*CacheMeta, error) {
	data, err := os.ReadFile(filepath.Join(lc.runDir(runID, attempt), "meta.json"))
	if err != nil {
		return nil, err
	}
	var meta CacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ListEntries scans the cache directory and returns all entries, most
// recently used first.
func (lc *LogCache) ListEntries() ([]CacheEntry, error) {
	entries, err := os.ReadDir(lc.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var result []CacheEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		runID, attempt, ok := parseRunDir(e.Name())
		if !ok {
			continue
		}

		dirPath := filepath.Join(lc.dir, e.Name())
		entry := CacheEntry{Path: dirPath}
		if meta, err := lc.ReadMeta(runID, attempt); err == nil {
			entry.CacheMeta = *meta
		}
		entry.RunID = runID
		entry.Attempt = attempt
		entry.Size = dirSize(dirPath)
		entry.LastAccessed = dirLastAccessed(dirPath)

		result = append(result, entry)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastAccessed.After(result[j].LastAccessed)
	})
	return result, nil
}

// parseRunDir reverses runDir: run-<runID>-attempt-<attempt>.
func parseRunDir(name string) (int64, int, bool) {
	rest, ok := strings.CutPrefix(name, "run-")
	if !ok {
		return 0, 0, false
	}
	idx := strings.LastIndex(rest, "-attempt-")
	if idx < 0 {
		return 0, 0, false
	}
	runID, err1 := strconv.ParseInt(rest[:idx], 10, 64)
	attempt, err2 := strconv.Atoi(rest[idx+len("-attempt-"):])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return runID, attempt, true
}

// DeleteEntry removes a single cache entry.
func (lc *LogCache) DeleteEntry(runID int64, attempt int) error {
	return os.RemoveAll(lc.runDir(runID, attempt))
}

// DeleteAll removes all cache entries.
func (lc *LogCache) DeleteAll() error {
	entries, err := os.ReadDir(lc.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := os.RemoveAll(filepath.Join(lc.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// TotalSize returns total cache size in bytes.
func (lc *LogCache) TotalSize() (int64, error) {
	var total int64
	err := filepath.Walk(lc.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return 0, err
	}
	return total, nil
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func dirLastAccessed(path string) time.Time {
	var latest time.Time
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	return latest
}
