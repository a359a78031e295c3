// go-uwb
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-uwb.
//
// go-uwb is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-uwb is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-uwb; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package logging holds the process-wide zerolog logger and hands out
// per-component sub-loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// EnvLevel names the environment variable read for the default level.
const EnvLevel = "UWB_LOG_LEVEL"

// Config selects level, output format and an optional rotating log file.
type Config struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // auto, console or json
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

var (
	mu   sync.RWMutex
	base = newDefault()
)

func newDefault() zerolog.Logger {
	level := ParseLevel(os.Getenv(EnvLevel), zerolog.WarnLevel)
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// ParseLevel turns a level name into a zerolog level, falling back to def
// for empty or unknown names.
func ParseLevel(name string, def zerolog.Level) zerolog.Level {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return def
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return def
	}
	return level
}

// New builds a logger from cfg writing to stderr and, when cfg.File is
// set, to a lumberjack-rotated file.
func New(cfg Config, stderr io.Writer) zerolog.Logger {
	var console io.Writer = stderr
	switch cfg.Format {
	case "json":
	case "console":
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	default:
		if f, ok := stderr.(*os.File); ok && isTerminal(f) {
			console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
		}
	}

	out := console
	if cfg.File != "" {
		out = zerolog.MultiLevelWriter(console, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		})
	}

	level := ParseLevel(os.Getenv(EnvLevel), zerolog.InfoLevel)
	level = ParseLevel(cfg.Level, level)
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Setup replaces the process-wide logger.
func Setup(cfg Config) zerolog.Logger {
	logger := New(cfg, os.Stderr)
	Set(logger)
	return logger
}

// Set installs logger as the process-wide logger.
func Set(logger zerolog.Logger) {
	mu.Lock()
	base = logger
	mu.Unlock()
}

// Logger returns the process-wide logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Component returns a sub-logger tagged with the component name.
func Component(name string) zerolog.Logger {
	l := Logger()
	return l.With().Str("component", name).Logger()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
