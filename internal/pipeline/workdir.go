package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	transcriptFile = "transcript.txt"
	generatedFile  = "generated.txt"
)

// Workdir is the scratch directory owned by a single pipeline run.
type Workdir struct {
	Path string
}

// NewWorkdir creates <root>/<uuid>.
func NewWorkdir(root string) (*Workdir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	path := filepath.Join(root, uuid.NewString())
	if err := os.Mkdir(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workdir: %w", err)
	}
	return &Workdir{Path: path}, nil
}

func (w *Workdir) File(name string) string {
	return filepath.Join(w.Path, name)
}

func (w *Workdir) WriteText(name, content string) error {
	return os.WriteFile(w.File(name), []byte(content), 0o600)
}

func (w *Workdir) ReadText(name string) (string, error) {
	data, err := os.ReadFile(w.File(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Cleanup removes the directory and everything in it.
func (w *Workdir) Cleanup() {
	if err := os.RemoveAll(w.Path); err != nil {
		log.Printf("pipeline: failed to remove workdir %s: %v", w.Path, err)
	}
}
