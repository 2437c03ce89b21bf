package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// DailyWriter writes to basePath-YYYY-MM-DD.log, switching files when the
// date changes and pruning files older than the retention window.
type DailyWriter struct {
	mu             sync.Mutex
	basePath       string
	file           *os.File
	current        string
	enableRotation bool
	retentionDays  int
	now            func() time.Time
}

// NewDailyWriter creates a new daily rotating writer
func NewDailyWriter(basePath string, enableRotation bool, retentionDays int) (*DailyWriter, error) {
	w := &DailyWriter{
		basePath:       basePath,
		enableRotation: enableRotation,
		retentionDays:  retentionDays,
		now:            time.Now,
	}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements the io.Writer interface
func (w *DailyWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Filename returns the file currently written to.
func (w *DailyWriter) Filename() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return ""
	}
	return w.file.Name()
}

func (w *DailyWriter) rotateIfNeeded() error {
	if !w.enableRotation {
		if w.file != nil {
			return nil
		}
		return w.openFile(w.basePath + ".log")
	}

	today := w.now().Format(dayLayout)
	if w.file != nil && w.current == today {
		return nil
	}

	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}

	if err := w.openFile(w.basePath + "-" + today + ".log"); err != nil {
		return err
	}

	w.current = today
	w.prune()
	return nil
}

// prune removes rotated files whose date falls outside the retention window.
// Errors are ignored; a stale file is not worth failing a write over.
func (w *DailyWriter) prune() {
	if w.retentionDays <= 0 {
		return
	}

	matches, err := filepath.Glob(w.basePath + "-*.log")
	if err != nil {
		return
	}
	sort.Strings(matches)

	cutoff := w.now().AddDate(0, 0, -w.retentionDays).Format(dayLayout)
	prefix := filepath.Base(w.basePath) + "-"
	for _, m := range matches {
		day := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".log")
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		if day < cutoff {
			_ = os.Remove(m)
		}
	}
}

func (w *DailyWriter) openFile(filename string) error {
	dir := filepath.Dir(w.basePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(
		filename,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0644,
	)
	if err != nil {
		return err
	}

	w.file = file
	return nil
}

// Close closes the current file
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
