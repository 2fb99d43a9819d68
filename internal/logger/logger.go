package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DeRuina/timberjack"
	"github.com/sirupsen/logrus"
)

var (
	// Logger is the process-wide logger shared by the CLI and the server.
	Logger *logrus.Logger

	mu          sync.Mutex
	initialized bool
	fileWriter  *timberjack.Logger
)

// LogConfig holds configuration for logging
type LogConfig struct {
	Level        string // "debug", "info", "warn", "error"
	Format       string // "text" or "json"
	FilePath     string // empty disables the file sink
	RotationTime string // time-based rotation interval (e.g. "24h")
	MaxSize      int    // megabytes before rotation
	MaxBackups   int
	MaxAge       int // days
	Compress     bool
}

// Init configures the global logger. Later calls are no-ops until Close.
func Init(config LogConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized && Logger != nil {
		return nil
	}

	l, fw, err := build(config, stdoutWriter())
	if err != nil {
		return err
	}
	Logger = l
	fileWriter = fw
	initialized = true
	return nil
}

// New builds a standalone logger writing to out plus the configured file.
func New(config LogConfig, out io.Writer) (*logrus.Logger, error) {
	l, _, err := build(config, out)
	return l, err
}

func build(config LogConfig, out io.Writer) (*logrus.Logger, *timberjack.Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetFormatter(formatter(config.Format))

	var writers []io.Writer
	if out != nil {
		writers = append(writers, out)
	}

	var fw *timberjack.Logger
	if config.FilePath != "" {
		fw, err = rotatingFile(config)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
	}

	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}
	return l, fw, nil
}

func formatter(format string) logrus.Formatter {
	if format == "json" {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	}
}

func rotatingFile(config LogConfig) (*timberjack.Logger, error) {
	dir := filepath.Dir(config.FilePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = 100
	}
	maxBackups := config.MaxBackups
	if maxBackups == 0 {
		maxBackups = 3
	}
	maxAge := config.MaxAge
	if maxAge == 0 {
		maxAge = 28
	}

	rotation := 24 * time.Hour
	if config.RotationTime != "" {
		var err error
		rotation, err = time.ParseDuration(config.RotationTime)
		if err != nil {
			return nil, fmt.Errorf("invalid rotation_time: %w", err)
		}
	}

	compression := ""
	if config.Compress {
		compression = "gzip"
	}

	return &timberjack.Logger{
		Filename:         config.FilePath,
		MaxSize:          maxSize,
		MaxBackups:       maxBackups,
		MaxAge:           maxAge,
		RotationInterval: rotation,
		Compression:      compression,
		LocalTime:        true,
	}, nil
}

// stdoutWriter returns nil when stdout is already a regular file, so daemon
// output redirected to the log file is not written twice.
func stdoutWriter() io.Writer {
	stat, err := os.Stdout.Stat()
	if err != nil {
		return os.Stdout
	}
	if stat.Mode()&os.ModeCharDevice == 0 && stat.Mode().IsRegular() {
		return nil
	}
	return os.Stdout
}

// GetLogger returns the global logger, creating a discard-only one if Init
// has not run yet.
func GetLogger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()

	if Logger == nil {
		Logger = logrus.New()
		Logger.SetOutput(io.Discard)
		Logger.SetLevel(logrus.InfoLevel)
		Logger.SetFormatter(formatter("text"))
	}
	return Logger
}

// WithComponent tags entries of the global logger with a component name.
func WithComponent(name string) *logrus.Entry {
	return GetLogger().WithField("component", name)
}

// Close flushes and closes the rotating file, if any, and allows Init to run again.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	initialized = false
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}
