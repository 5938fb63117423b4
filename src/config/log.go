package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type Log struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
	// Format is text or json.
	Format string `toml:"format" yaml:"format"`
}

func DefaultLog() Log {
	return Log{Level: "info", Format: "text"}
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

func (l Log) Validate() error {
	if _, err := l.level(); err != nil {
		return err
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("config: log format %q must be text or json", l.Format)
}

// NewLogger builds the process logger writing to w.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	lvl, _ := l.level()
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
