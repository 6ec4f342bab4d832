package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_CreateAndStageWriter(t *testing.T) {
	tempBase := t.TempDir()
	mgr := NewManager(tempBase)

	if err := mgr.Create(); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	runPath := mgr.Path()
	if runPath == "" {
		t.Fatal("Path() returned empty string")
	}
	if !strings.HasPrefix(filepath.Base(runPath), "run-") {
		t.Errorf("Expected timestamped run directory, got: %s", runPath)
	}

	w, err := mgr.StageWriter("freeze", 2)
	if err != nil {
		t.Fatalf("StageWriter() failed: %v", err)
	}
	if _, err := w.Write([]byte("attempt output\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(runPath, "freeze-attempt2.log"))
	if err != nil {
		t.Fatalf("reading stage log: %v", err)
	}
	if string(data) != "attempt output\n" {
		t.Errorf("unexpected log content: %q", data)
	}

	// Attempt 0 maps to the prepare log.
	pw, err := mgr.StageWriter("deps", 0)
	if err != nil {
		t.Fatalf("StageWriter(prepare) failed: %v", err)
	}
	_ = pw.Close()
	if _, err := os.Stat(filepath.Join(runPath, "deps-prepare.log")); err != nil {
		t.Errorf("prepare log not created: %v", err)
	}
}

func TestManager_StageWriterBeforeCreate(t *testing.T) {
	mgr := NewManager(t.TempDir())
	if _, err := mgr.StageWriter("x", 1); err == nil {
		t.Fatal("expected error before Create()")
	}
}

func TestManager_Prune(t *testing.T) {
	tempBase := t.TempDir()
	names := []string{"run-20240101-000000", "run-20240102-000000", "run-20240103-000000"}
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(tempBase, n), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	// Unrelated entries must survive pruning.
	if err := os.MkdirAll(filepath.Join(tempBase, "other"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	mgr := NewManager(tempBase)
	if err := mgr.Prune(1); err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempBase, names[2])); err != nil {
		t.Errorf("newest run should survive: %v", err)
	}
	for _, n := range names[:2] {
		if _, err := os.Stat(filepath.Join(tempBase, n)); !os.IsNotExist(err) {
			t.Errorf("old run %s should be pruned", n)
		}
	}
	if _, err := os.Stat(filepath.Join(tempBase, "other")); err != nil {
		t.Errorf("unrelated directory should survive: %v", err)
	}
}

func TestManager_CreateUniquePerRun(t *testing.T) {
	tempBase := t.TempDir()

	// Runs started within the same second must not share a directory.
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		mgr := NewManager(tempBase)
		if err := mgr.Create(); err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if seen[mgr.Path()] {
			t.Fatalf("run directory reused: %s", mgr.Path())
		}
		seen[mgr.Path()] = true
	}
}
