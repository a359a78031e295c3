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

// Package config loads the TOML file that tells uwbctl which chips to open
// and how.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/internal/logging"
)

// Defaults applied to fields left unset.
const (
	DefaultBaudRate        = 115200
	DefaultSPISpeedHz      = 8_000_000
	DefaultResponseTimeout = time.Second
	DefaultQueueSize       = 64
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Radio describes one UWB chip and the link it is reached over.
type Radio struct {
	ID         string            `toml:"id"`
	Transport  uwb.TransportType `toml:"transport"`
	Path       string            `toml:"path"`
	IRQPin     string            `toml:"irq_pin"`
	BaudRate   int               `toml:"baud_rate"`
	SPISpeedHz int64             `toml:"spi_speed_hz"`
}

// Config is the whole file.
type Config struct {
	CountryCode     string         `toml:"country_code"`
	Log             logging.Config `toml:"log"`
	Radios          []Radio        `toml:"radio"`
	ResponseTimeout time.Duration  `toml:"response_timeout"`
	QueueSize       int            `toml:"queue_size"`
	AutoDetect      bool           `toml:"auto_detect"`
}

// Default returns the configuration used when no file is given: detect
// UART dev kits and log warnings to stderr.
func Default() Config {
	cfg := Config{AutoDetect: true}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads path, fills in defaults and validates the result. Unknown
// keys are rejected so typos do not go unnoticed.
func Load(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a TOML document held in memory.
func Parse(data string) (Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.CountryCode = strings.ToUpper(strings.TrimSpace(c.CountryCode))
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	for i := range c.Radios {
		r := &c.Radios[i]
		if r.ID == "" {
			r.ID = fmt.Sprintf("chip%d", i)
		}
		switch r.Transport {
		case uwb.TransportUART:
			if r.BaudRate == 0 {
				r.BaudRate = DefaultBaudRate
			}
		case uwb.TransportSPI:
			if r.SPISpeedHz == 0 {
				r.SPISpeedHz = DefaultSPISpeedHz
			}
		}
	}
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	if c.CountryCode != "" && !countryCodePattern.MatchString(c.CountryCode) {
		return fmt.Errorf("%w: country_code %q is not two letters", ErrInvalid, c.CountryCode)
	}
	if c.ResponseTimeout < 0 {
		return fmt.Errorf("%w: negative response_timeout", ErrInvalid)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: negative queue_size", ErrInvalid)
	}
	if len(c.Radios) == 0 && !c.AutoDetect {
		return fmt.Errorf("%w: no radios configured and auto_detect is off", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Radios))
	for _, r := range c.Radios {
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate radio id %q", ErrInvalid, r.ID)
		}
		seen[r.ID] = true
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r Radio) validate() error {
	if r.Path == "" {
		return fmt.Errorf("%w: radio %q has no path", ErrInvalid, r.ID)
	}
	switch r.Transport {
	case uwb.TransportUART:
		if r.BaudRate < 0 {
			return fmt.Errorf("%w: radio %q has negative baud_rate", ErrInvalid, r.ID)
		}
	case uwb.TransportSPI:
		if r.IRQPin == "" {
			return fmt.Errorf("%w: SPI radio %q needs irq_pin", ErrInvalid, r.ID)
		}
		if r.SPISpeedHz < 0 {
			return fmt.Errorf("%w: radio %q has negative spi_speed_hz", ErrInvalid, r.ID)
		}
	case uwb.TransportCharDev:
	default:
		return fmt.Errorf("%w: radio %q has unknown transport %q", ErrInvalid, r.ID, r.Transport)
	}
	return nil
}
