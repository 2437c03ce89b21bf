package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LevelDebug    LogLevel = "DEBUG"
	LevelInfo     LogLevel = "INFO"
	LevelWarn     LogLevel = "WARN"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

// Logger writes three streams: an event log, a detailed error log and a
// JSON line stream suitable for Loki.
type Logger struct {
	eventLogger *log.Logger
	errorLogger *log.Logger
	lokiWriter  io.Writer
	closers     []io.Closer
	config      *Config
}

// Config holds logger configuration
type Config struct {
	ServiceName    string `yaml:"service_name" mapstructure:"service_name"`
	LogPath        string `yaml:"log_path" mapstructure:"log_path"`
	FilePrefix     string `yaml:"file_prefix" mapstructure:"file_prefix"`
	EnableStdout   bool   `yaml:"enable_stdout" mapstructure:"enable_stdout"`
	EnableFile     bool   `yaml:"enable_file" mapstructure:"enable_file"`
	EnableLoki     bool   `yaml:"enable_loki" mapstructure:"enable_loki"`
	EnableRotation bool   `yaml:"enable_rotation" mapstructure:"enable_rotation"`
	// RetentionDays removes rotated files older than this many days. Zero keeps everything.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// DefaultConfig returns the configuration used when New is given nil.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "sos",
		LogPath:        "./logs",
		FilePrefix:     "sos",
		EnableStdout:   true,
		EnableFile:     true,
		EnableLoki:     false,
		EnableRotation: true,
		RetentionDays:  14,
	}
}

// New creates a new logger instance
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	logger := &Logger{
		config: config,
	}

	if err := logger.setupWriters(); err != nil {
		return nil, err
	}

	return logger, nil
}

// Discard returns a logger that drops everything. Useful for tests and for
// library callers that do not want output.
func Discard() *Logger {
	return &Logger{
		eventLogger: log.New(io.Discard, "", 0),
		errorLogger: log.New(io.Discard, "", 0),
		lokiWriter:  io.Discard,
		config:      &Config{ServiceName: "sos"},
	}
}

// NewWithWriters builds a logger over caller-supplied writers.
func NewWithWriters(serviceName string, events, errs, loki io.Writer) *Logger {
	return &Logger{
		eventLogger: log.New(events, "", log.LstdFlags),
		errorLogger: log.New(errs, "", log.LstdFlags),
		lokiWriter:  loki,
		config:      &Config{ServiceName: serviceName, EnableLoki: true},
	}
}

// setupWriters configures the output writers based on config
func (l *Logger) setupWriters() error {
	var eventWriters []io.Writer
	var errorWriters []io.Writer
	var lokiWriters []io.Writer

	filePrefix := l.config.FilePrefix
	if filePrefix == "" {
		filePrefix = "sos"
	}

	basePath := l.config.LogPath + "/" + filePrefix

	if l.config.EnableStdout {
		eventWriters = append(eventWriters, log.Writer())
		errorWriters = append(errorWriters, log.Writer())
		if l.config.EnableLoki {
			lokiWriters = append(lokiWriters, log.Writer())
		}
	}

	if l.config.EnableFile {
		for _, target := range []struct {
			suffix string
			dst    *[]io.Writer
		}{
			{".events", &eventWriters},
			{".error", &errorWriters},
			{".loki", &lokiWriters},
		} {
			if target.suffix == ".loki" && !l.config.EnableLoki {
				continue
			}
			w, err := NewDailyWriter(basePath+target.suffix, l.config.EnableRotation, l.config.RetentionDays)
			if err != nil {
				l.Close()
				return fmt.Errorf("failed to open %s log: %w", target.suffix, err)
			}
			l.closers = append(l.closers, w)
			*target.dst = append(*target.dst, w)
		}
	}

	l.eventLogger = log.New(io.MultiWriter(eventWriters...), "", log.LstdFlags|log.Lshortfile)
	l.errorLogger = log.New(io.MultiWriter(errorWriters...), "", log.LstdFlags|log.Lshortfile)
	l.lokiWriter = io.MultiWriter(lokiWriters...)

	return nil
}

// Close releases the file writers.
func (l *Logger) Close() error {
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	return first
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.eventLogger.Printf("[INFO] %s", msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.eventLogger.Printf("[INFO] "+format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.eventLogger.Printf("[WARN] %s", msg)
}

// LogRequest logs an HTTP request to the event log and Loki
func (l *Logger) LogRequest(ctx context.Context, statusCode int, latency time.Duration) {
	l.LogRequestWithError(ctx, statusCode, latency, nil)
}

// LogRequestWithError logs an HTTP request with an optional error
func (l *Logger) LogRequestWithError(ctx context.Context, statusCode int, latency time.Duration, err error) {
	meta, ok := FromContext(ctx)
	if !ok {
		return
	}

	l.eventLogger.Printf(
		"[REQ:%s] %s | %3d | %13v | %15s | %-7s %s",
		meta.RequestID,
		time.Now().Format(time.RFC3339),
		statusCode,
		latency,
		meta.IP,
		meta.Method,
		meta.Path,
	)

	LogLoki(ctx, l.config.ServiceName, string(LevelForStatus(statusCode)), statusCode, latency, err, l.lokiWriter)
}

// LevelForStatus maps an HTTP status code to a log level.
func LevelForStatus(statusCode int) LogLevel {
	switch {
	case statusCode >= 500:
		return LevelCritical
	case statusCode >= 400:
		return LevelError
	case statusCode >= 300:
		return LevelWarn
	}
	return LevelInfo
}

// Error logs an error with context
func (l *Logger) Error(ctx context.Context, err error) {
	LogError(ctx, err, l.errorLogger)
}

// ErrorLoki logs an error in Loki format
func (l *Logger) ErrorLoki(ctx context.Context, level LogLevel, err error) {
	LogErrorLoki(ctx, l.config.ServiceName, string(level), err, l.lokiWriter)
}

// Delivery records the outcome of one channel attempt: a line in the event
// log and a JSON event for Loki.
func (l *Logger) Delivery(ctx context.Context, channel string, latency time.Duration, err error) {
	meta, _ := FromContext(ctx)
	outcome := "sent"
	level := LevelInfo
	if err != nil {
		outcome = "failed: " + err.Error()
		level = LevelError
	}
	l.eventLogger.Printf("[ALERT:%s] %-10s %s (%v)", meta.AlertID, channel, outcome, latency)
	LogDeliveryLoki(ctx, l.config.ServiceName, string(level), channel, latency, err, l.lokiWriter)
}
