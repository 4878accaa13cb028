package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSweepRemovesOnlyStaleWorkdirs(t *testing.T) {
	root := t.TempDir()
	now := time.Now()

	stale := filepath.Join(root, uuid.NewString())
	fresh := filepath.Join(root, uuid.NewString())
	for _, dir := range []string{stale, fresh} {
		if err := os.Mkdir(dir, 0o700); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	old := now.Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewSweeper(root, time.Hour)
	if removed := s.Sweep(now); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale workdir should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh workdir should remain")
	}
	if _, err := os.Stat(filepath.Join(root, "stray.txt")); err != nil {
		t.Fatal("plain files are left alone")
	}
}

func TestSweepLeavesForeignDirectories(t *testing.T) {
	root := t.TempDir()
	now := time.Now()
	old := now.Add(-2 * time.Hour)

	foreign := filepath.Join(root, "postgres-data")
	if err := os.MkdirAll(filepath.Join(foreign, "base", "important"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chtimes(foreign, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	stale := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(stale, 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := NewSweeper(root, time.Hour)
	if removed := s.Sweep(now); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(foreign, "base", "important")); err != nil {
		t.Fatalf("non-workdir directory must survive a sweep: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale workdir should be gone")
	}
}

func TestSweepMissingRoot(t *testing.T) {
	s := NewSweeper(filepath.Join(t.TempDir(), "missing"), time.Hour)
	if removed := s.Sweep(time.Now()); removed != 0 {
		t.Fatalf("expected 0, got %d", removed)
	}
	s.Stop()
	s.Stop()
}

func TestWorkdirLifecycle(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")

	a, err := NewWorkdir(root)
	if err != nil {
		t.Fatalf("NewWorkdir: %v", err)
	}
	b, err := NewWorkdir(root)
	if err != nil {
		t.Fatalf("NewWorkdir: %v", err)
	}
	if a.Path == b.Path {
		t.Fatal("each run needs its own directory")
	}

	if err := a.WriteText(transcriptFile, "hello"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	if got, _ := a.ReadText(transcriptFile); got != "hello" {
		t.Fatalf("ReadText = %q", got)
	}

	a.Cleanup()
	if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
		t.Fatal("Cleanup should remove the directory")
	}
	if _, err := os.Stat(b.Path); err != nil {
		t.Fatal("other workdirs must survive")
	}
}
