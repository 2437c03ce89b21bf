package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dustin/go-humanize"

	"github.com/ahmadsaubani/go-sos-lib/logging"
)

var (
	ErrNotRecording = errors.New("not recording")
	ErrInvalidName  = errors.New("invalid recording name")
)

// Extensions are the file types List reports.
var Extensions = []string{".aac", ".3gp", ".mp4"}

// Device is the capture hardware. Only one session may be open at a time.
type Device interface {
	Start(path string) error
	Stop() error
}

type Config struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Recorder owns the device and the file of the current session.
type Recorder struct {
	mu      sync.Mutex
	device  Device
	dir     string
	clock   clock.Clock
	logger  *logging.Logger
	session uint64
	active  bool
	path    string
	started time.Time
	timer   *clock.Timer
	stopped chan struct{}
	last    string
	lastLen time.Duration
}

// Status describes the recorder at a point in time.
type Status struct {
	Recording bool          `json:"recording"`
	Path      string        `json:"path,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty"`
	Since     string        `json:"since,omitempty"`
	LastPath  string        `json:"last_path,omitempty"`
}

// Recording is one file in the recordings directory.
type Recording struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	SizeText string    `json:"size_text"`
	ModTime  time.Time `json:"mod_time"`
	Age      string    `json:"age"`
}

/**
 * New creates a recorder writing into config.Dir.
 *
 * @param config Recorder configuration; an empty Dir selects ./recordings
 * @param device The capture device
 * @param clk Clock for file names and auto-stop timers; nil uses the wall clock
 * @param logger Event destination; nil discards
 * @return *Recorder
 */
func New(config *Config, device Device, clk clock.Clock, logger *logging.Logger) *Recorder {
	dir := "./recordings"
	if config != nil && config.Dir != "" {
		dir = config.Dir
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{device: device, dir: dir, clock: clk, logger: logger}
}

// Dir returns the recordings directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// FileName returns the name a recording started at t gets.
func FileName(t time.Time) string {
	return "emergency_" + t.Format("20060102_150405") + ".aac"
}

// Start begins a session. A session already in progress is stopped first.
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked()
}

// StartFor begins a session that stops on its own after d.
func (r *Recorder) StartFor(d time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.startLocked()
	if err != nil {
		return "", err
	}

	session := r.session
	r.timer = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.active && r.session == session {
			if _, err := r.stopLocked(); err != nil {
				r.logger.Error(context.Background(), fmt.Errorf("auto-stop recording: %w", err))
			}
		}
	})
	return path, nil
}

func (r *Recorder) startLocked() (string, error) {
	if r.active {
		if _, err := r.stopLocked(); err != nil {
			r.logger.Error(context.Background(), fmt.Errorf("stop previous recording: %w", err))
		}
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recordings directory: %w", err)
	}

	now := r.clock.Now()
	path := r.freePath(FileName(now))
	if err := r.device.Start(path); err != nil {
		return "", fmt.Errorf("failed to start recording: %w", err)
	}

	r.session++
	r.stopped = make(chan struct{})
	r.active = true
	r.path = path
	r.started = now
	r.logger.Infof("[RECORDER] started %s", path)
	return path, nil
}

// freePath joins name to the recordings directory, adding a _<n> suffix
// while the path is taken on disk or by the previous session.
func (r *Recorder) freePath(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	path := filepath.Join(r.dir, name)
	for n := 1; r.taken(path); n++ {
		path = filepath.Join(r.dir, fmt.Sprintf("%s_%d%s", base, n, ext))
	}
	return path
}

func (r *Recorder) taken(path string) bool {
	if path == r.last {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// Stop ends the current session and returns the finished file.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return "", ErrNotRecording
	}
	return r.stopLocked()
}

func (r *Recorder) stopLocked() (string, error) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}

	path := r.path
	r.active = false
	r.path = ""
	r.last = path
	r.lastLen = r.clock.Since(r.started)
	close(r.stopped)

	if err := r.device.Stop(); err != nil {
		return path, fmt.Errorf("failed to stop recording: %w", err)
	}
	r.logger.Infof("[RECORDER] stopped %s after %s", path, r.lastLen.Round(time.Second))
	return path, nil
}

// Wait blocks until the current session ends and returns its file.
func (r *Recorder) Wait(ctx context.Context) (string, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return "", ErrNotRecording
	}
	path, stopped := r.path, r.stopped
	r.mu.Unlock()

	select {
	case <-stopped:
		return path, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// LastPath returns the most recent session's file, running or finished.
func (r *Recorder) LastPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return r.path
	}
	return r.last
}

// LastDuration returns how long the most recent finished session ran.
func (r *Recorder) LastDuration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLen
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{Recording: r.active, LastPath: r.last}
	if r.active {
		st.Path = r.path
		st.Elapsed = r.clock.Since(r.started)
		st.Since = humanize.RelTime(r.started, r.clock.Now(), "ago", "from now")
	}
	return st
}

// List returns the recordings on disk, newest first.
func (r *Recorder) List() ([]Recording, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Recording{}, nil
		}
		return nil, fmt.Errorf("failed to read recordings: %w", err)
	}

	now := r.clock.Now()
	out := make([]Recording, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isRecording(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Recording{
			Name:     e.Name(),
			Path:     filepath.Join(r.dir, e.Name()),
			Size:     info.Size(),
			SizeText: humanize.Bytes(uint64(info.Size())),
			ModTime:  info.ModTime(),
			Age:      humanize.RelTime(info.ModTime(), now, "ago", "from now"),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name > out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Remove deletes a recording by file name. The active file cannot be removed.
func (r *Recorder) Remove(name string) error {
	if name == "" || filepath.Base(name) != name || !isRecording(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := filepath.Join(r.dir, name)
	r.mu.Lock()
	busy := r.active && r.path == path
	r.mu.Unlock()
	if busy {
		return fmt.Errorf("%s is being recorded", name)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	return nil
}

func isRecording(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
