package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// InUseFunc reports whether a run directory belongs to an active run
type InUseFunc func(dir string) bool

// Scheduler clears intermediate files out of run directories that have not been touched for maxAge.
// Entries named in keep (the published video) survive; a run without any of them is removed entirely.
type Scheduler struct {
	root     string
	interval time.Duration
	maxAge   time.Duration
	inUse    InUseFunc
	keep     map[string]bool
	now      func() time.Time
	stopChan chan struct{}
}

// NewScheduler creates a new cleanup scheduler. inUse may be nil.
func NewScheduler(root string, intervalMinutes, maxAgeHours int, inUse InUseFunc, keep ...string) *Scheduler {
	if inUse == nil {
		inUse = func(string) bool { return false }
	}
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}
	return &Scheduler{
		root:     root,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		inUse:    inUse,
		keep:     kept,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	log.Println("Running initial run directory cleanup...")
	s.Prune()

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Prune()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// Prune cleans expired run directories (<root>/YYYY/MM/DD/<run>) and returns how many were touched
func (s *Scheduler) Prune() int {
	runs, err := filepath.Glob(filepath.Join(s.root, "*", "*", "*", "*"))
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
		return 0
	}

	var deletedCount int
	var deletedSize int64

	for _, dir := range runs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() || s.inUse(dir) {
			continue
		}

		newest, size := scan(dir)
		age := s.now().Sub(newest)
		if age <= s.maxAge {
			continue
		}

		if s.hasKept(dir) {
			freed, removed := s.trim(dir)
			if removed == 0 {
				continue
			}
			deletedCount++
			deletedSize += freed
			log.Printf("Trimmed old run: %s (age: %s, %d entries, %dKB)", dir, age.Round(time.Hour), removed, freed/1024)
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Failed to delete old run %s: %v", dir, err)
			continue
		}
		deletedCount++
		deletedSize += size
		log.Printf("Deleted old run: %s (age: %s, size: %dKB)", dir, age.Round(time.Hour), size/1024)

		removeEmptyParents(filepath.Dir(dir), s.root)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d runs cleaned, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
	return deletedCount
}

func (s *Scheduler) hasKept(dir string) bool {
	for name := range s.keep {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// trim removes every top-level entry of dir not listed in keep
func (s *Scheduler) trim(dir string) (int64, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Failed to read run %s: %v", dir, err)
		return 0, 0
	}

	var freed int64
	var removed int
	for _, e := range entries {
		if s.keep[e.Name()] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		_, size := scan(path)
		if err := os.RemoveAll(path); err != nil {
			log.Printf("Failed to delete %s: %v", path, err)
			continue
		}
		freed += size
		removed++
	}
	return freed, removed
}

// scan returns the newest modification time and total size below dir
func scan(dir string) (time.Time, int64) {
	var newest time.Time
	var size int64
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return newest, size
}

// removeEmptyParents deletes empty day/month/year directories up to root
func removeEmptyParents(dir, root string) {
	root = filepath.Clean(root)
	for dir = filepath.Clean(dir); dir != root && len(dir) > len(root); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

// EnsureDir creates dir if it doesn't exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	log.Printf("Directory ready: %s", dir)
	return nil
}
