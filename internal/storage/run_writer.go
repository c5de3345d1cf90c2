package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deusflow/biobrief/internal/briefing"
)

const runDirPrefix = "run_"

// RunWriter lays out one directory per run under a base output directory.
type RunWriter struct {
	baseDir string
}

// NewRunWriter returns a writer rooted at baseDir.
func NewRunWriter(baseDir string) *RunWriter {
	return &RunWriter{baseDir: baseDir}
}

// RunDirName is run_YYYYMMDD_HHMMSS of the generation time.
func RunDirName(out briefing.Output) string {
	return runDirPrefix + out.GeneratedAt.UTC().Format("20060102_150405")
}

// Write renders the briefing and writes all run files. It returns the run
// directory.
func (w *RunWriter) Write(out briefing.Output, stats briefing.RunStats) (string, error) {
	dir := filepath.Join(w.baseDir, RunDirName(out))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run dir: %w", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal briefing: %w", err)
	}

	files := map[string][]byte{
		"briefing.json":    data,
		"script.txt":       []byte(briefing.RenderScript(out)),
		"post.txt":         []byte(briefing.RenderPost(out, false)),
		"post_compact.txt": []byte(briefing.RenderPost(out, true)),
		"summary.txt":      []byte(briefing.RenderSummary(out, stats, dir)),
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := writeFileAtomic(filepath.Join(dir, name), files[name]); err != nil {
			return "", err
		}
	}
	return dir, nil
}

// LoadBriefing reads briefing.json from a run directory.
func LoadBriefing(dir string) (briefing.Output, error) {
	var out briefing.Output
	data, err := os.ReadFile(filepath.Join(dir, "briefing.json"))
	if err != nil {
		return out, fmt.Errorf("failed to read briefing: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal briefing: %w", err)
	}
	return out, nil
}

// LatestRunDir finds the newest run directory by name. It returns "" when
// there is none.
func (w *RunWriter) LatestRunDir() (string, error) {
	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list runs: %w", err)
	}

	latest := ""
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), runDirPrefix) && e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", nil
	}
	return filepath.Join(w.baseDir, latest), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
