// Package workspace manages per-run scratch directories holding stage logs
// and the run report.
package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/distbuilder/internal/logfields"
)

// Manager creates one timestamped directory per run under a fixed base.
type Manager struct {
	baseDir string
	runDir  string
}

// NewManager creates a workspace manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create creates the timestamped run directory. A random suffix keeps runs
// started within the same second apart, and the leading timestamp keeps
// names sorting chronologically for Prune.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base: %w", err)
	}
	timestamp := time.Now().Format("20060102-150405")
	runDir, err := os.MkdirTemp(m.baseDir, fmt.Sprintf("run-%s-", timestamp))
	if err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := os.Chmod(runDir, 0o750); err != nil {
		return fmt.Errorf("failed to set run directory mode: %w", err)
	}
	m.runDir = runDir
	slog.Debug("Created run workspace", logfields.Path(runDir))
	return nil
}

// Path returns the run directory, empty before Create.
func (m *Manager) Path() string {
	return m.runDir
}

// StageWriter opens the log file for one stage attempt. Attempt 0 is
// reserved for prerequisite setup output.
func (m *Manager) StageWriter(stage string, attempt int) (io.WriteCloser, error) {
	if m.runDir == "" {
		return nil, fmt.Errorf("workspace not created")
	}
	name := fmt.Sprintf("%s-attempt%d.log", stage, attempt)
	if attempt == 0 {
		name = fmt.Sprintf("%s-prepare.log", stage)
	}
	f, err := os.OpenFile(filepath.Join(m.runDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open stage log: %w", err)
	}
	return f, nil
}

// WriteFile places an auxiliary file (report, manifest) in the run directory.
func (m *Manager) WriteFile(name string, data []byte) error {
	if m.runDir == "" {
		return fmt.Errorf("workspace not created")
	}
	return os.WriteFile(filepath.Join(m.runDir, name), data, 0o640)
}

// Prune removes the oldest run directories, keeping the most recent `keep`.
func (m *Manager) Prune(keep int) error {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read workspace base: %w", err)
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "run-") {
			runs = append(runs, e.Name())
		}
	}
	// Timestamped names sort chronologically.
	sort.Strings(runs)
	if len(runs) <= keep {
		return nil
	}
	for _, name := range runs[:len(runs)-keep] {
		p := filepath.Join(m.baseDir, name)
		if err := os.RemoveAll(p); err != nil {
			slog.Warn("Failed to prune old run directory", logfields.Path(p), logfields.Error(err))
		}
	}
	return nil
}
