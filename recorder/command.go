package recorder

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultArgs captures the default PulseAudio source into AAC.
var DefaultArgs = []string{"-hide_banner", "-loglevel", "error", "-y", "-f", "pulse", "-i", "default", "-c:a", "aac", "-f", "adts", "{path}"}

type CommandConfig struct {
	Program string   `yaml:"program" mapstructure:"program"`
	Args    []string `yaml:"args" mapstructure:"args"`
	// StopTimeout bounds how long Stop waits after the interrupt before killing.
	StopTimeout time.Duration `yaml:"stop_timeout" mapstructure:"stop_timeout"`
}

// CommandDevice records by running an external capture program. The
// placeholder {path} in Args is replaced by the output file.
type CommandDevice struct {
	config *CommandConfig
	mu     sync.Mutex
	cmd    *exec.Cmd
	done   chan error
}

func NewCommandDevice(config *CommandConfig) *CommandDevice {
	cfg := CommandConfig{Program: "ffmpeg", Args: DefaultArgs, StopTimeout: 5 * time.Second}
	if config != nil {
		if config.Program != "" {
			cfg.Program = config.Program
		}
		if len(config.Args) > 0 {
			cfg.Args = config.Args
		}
		if config.StopTimeout > 0 {
			cfg.StopTimeout = config.StopTimeout
		}
	}
	return &CommandDevice{config: &cfg}
}

func (d *CommandDevice) Start(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return errors.New("capture already running")
	}

	args := make([]string, len(d.config.Args))
	for i, a := range d.config.Args {
		args[i] = strings.ReplaceAll(a, "{path}", path)
	}

	cmd := exec.Command(d.config.Program, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to run %s: %w", d.config.Program, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	d.cmd, d.done = cmd, done
	return nil
}

// Stop interrupts the program so it can finalize the file, killing it if it
// does not exit within StopTimeout.
func (d *CommandDevice) Stop() error {
	d.mu.Lock()
	cmd, done := d.cmd, d.done
	d.cmd, d.done = nil, nil
	d.mu.Unlock()

	if cmd == nil {
		return ErrNotRecording
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
		<-done
		return nil
	}

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			return err
		}
		return nil
	case <-time.After(d.config.StopTimeout):
		cmd.Process.Kill()
		<-done
		return fmt.Errorf("%s did not exit after interrupt", d.config.Program)
	}
}
