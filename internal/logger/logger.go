package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for per-service log files.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// New returns the supervisor's own structured logger writing to stderr.
func New(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	h := NewColorTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv})
	return slog.New(h)
}

// FileConfig describes the combined per-service log destination. Each service
// gets Dir/<name>.log holding interleaved stdout and stderr, appended across
// restarts and rotated per lumberjack semantics.
type FileConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// Path returns the combined log file path for a service name.
func (c FileConfig) Path(name string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s.log", name))
}

// Writer returns the combined stdout/stderr writer for a service name.
func (c FileConfig) Writer(name string) (io.WriteCloser, error) {
	if c.Dir == "" {
		return nil, fmt.Errorf("log dir not configured")
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, err
	}
	return &lj.Logger{
		Filename:   c.Path(name),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}, nil
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
