package pipeline

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Sweeper removes scratch directories abandoned by runs that never reached
// their cleanup, e.g. after a crash.
type Sweeper struct {
	root     string
	ttl      time.Duration
	interval time.Duration
	stopChan chan struct{}
}

func NewSweeper(root string, ttl time.Duration) *Sweeper {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		root:     root,
		ttl:      ttl,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.loop()
	log.Printf("Scratch sweeper started (root=%s ttl=%s)", s.root, s.ttl)
}

func (s *Sweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *Sweeper) loop() {
	// Run on startup as well as by interval.
	s.Sweep(time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Sweep deletes workdirs last modified before now-ttl and returns how many
// were removed. Only uuid-named directories, as made by NewWorkdir, are
// considered.
func (s *Sweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("sweeper: failed to read %s: %v", s.root, err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := uuid.Parse(entry.Name()); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil || now.Sub(info.ModTime()) < s.ttl {
			continue
		}

		path := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Printf("sweeper: failed to remove %s: %v", path, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("sweeper: removed %d stale workdirs", removed)
	}
	return removed
}
