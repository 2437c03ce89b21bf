package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Source names the surface an alert was raised from.
type Source string

const (
	Button     Source = "button"
	VolumeKeys Source = "volume_keys"
	Widget     Source = "widget"
)

func (s Source) String() string {
	return string(s)
}

// ParseSource accepts the names above; the empty string means Button.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case "", Button:
		return Button, nil
	case VolumeKeys, Widget:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown trigger source %q", s)
}

const (
	DefaultPresses = 3
	DefaultWindow  = time.Second
)

type VolumeConfig struct {
	Presses int           `yaml:"presses" mapstructure:"presses"`
	Window  time.Duration `yaml:"window" mapstructure:"window"`
}

// VolumeSequence counts volume key presses and fires once the required
// number arrives with no gap longer than the window between them.
type VolumeSequence struct {
	mu      sync.Mutex
	clock   clock.Clock
	presses int
	window  time.Duration
	count   int
	last    time.Time
	fire    func()
}

func NewVolumeSequence(config *VolumeConfig, clk clock.Clock, fire func()) *VolumeSequence {
	v := &VolumeSequence{clock: clk, presses: DefaultPresses, window: DefaultWindow, fire: fire}
	if config != nil {
		if config.Presses > 0 {
			v.presses = config.Presses
		}
		if config.Window > 0 {
			v.window = config.Window
		}
	}
	if v.clock == nil {
		v.clock = clock.New()
	}
	return v
}

// Press records one key event and reports whether it completed a sequence.
// The callback runs on the caller's goroutine after the count is reset.
func (v *VolumeSequence) Press() bool {
	v.mu.Lock()
	now := v.clock.Now()
	if v.count > 0 && now.Sub(v.last) > v.window {
		v.count = 0
	}
	v.count++
	v.last = now

	fired := v.count >= v.presses
	if fired {
		v.count = 0
	}
	v.mu.Unlock()

	if fired && v.fire != nil {
		v.fire()
	}
	return fired
}

// Count returns presses accumulated toward the next sequence.
func (v *VolumeSequence) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.count
}

func (v *VolumeSequence) Reset() {
	v.mu.Lock()
	v.count = 0
	v.mu.Unlock()
}
