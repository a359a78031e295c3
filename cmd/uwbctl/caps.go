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

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	uwb "github.com/ZaparooProject/go-uwb"
	"github.com/ZaparooProject/go-uwb/codec"
	"github.com/ZaparooProject/go-uwb/detection"
	"github.com/ZaparooProject/go-uwb/internal/config"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/uci"
	"gopkg.in/yaml.v2"
)

func runCaps(args []string, stdout io.Writer) error {
	fs, debug := newFlagSet("caps")
	path := fs.String("config", "", "configuration file; chips are auto-detected when empty")
	timeout := fs.Duration("timeout", 10*time.Second, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *path != "" {
		var err error
		if cfg, err = config.Load(*path); err != nil {
			return err
		}
	}
	setupLogging(*debug, cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	transports, err := openTransports(cfg, func() ([]detection.DeviceInfo, error) {
		opts := detection.DefaultOptions()
		return detection.DetectAll(ctx, &opts)
	})
	if err != nil {
		return err
	}
	bridge, err := uci.New(transports, uci.WithResponseTimeout(cfg.ResponseTimeout))
	if err != nil {
		closeAll(transports)
		return err
	}
	defer func() { _ = bridge.Close() }()

	radio, err := uwb.NewRadio(bridge, uwb.WithChips(bridge.Chips()...), uwb.WithQueueSize(cfg.QueueSize))
	if err != nil {
		return err
	}
	defer func() { _ = radio.Close() }()

	infos, err := radio.InitializeAll(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = radio.DeinitializeAll(context.Background()) }()

	if cfg.CountryCode != "" {
		st, err := radio.SetCountryCodeAll(ctx, cfg.CountryCode)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "country code %s: %s\n", cfg.CountryCode, st)
	}

	configs := uwb.NewConfigurationManager(radio)
	for _, chip := range radio.Chips() {
		version := params.Version(1, 1)
		if info, ok := infos[chip]; ok && info != nil {
			version = info.Version()
		}
		_, _ = fmt.Fprintf(stdout, "%s: UCI %s\n", chip, version)

		st, caps := configs.GetCapsInfo(ctx, params.ProtocolGeneric, codec.TargetSpecification, chip, version)
		if !st.OK() {
			_, _ = fmt.Fprintf(stdout, "  capabilities: %s\n", st)
			continue
		}
		out, err := yaml.Marshal(map[string]any(caps.ToBundle()))
		if err != nil {
			return fmt.Errorf("failed to render capabilities: %w", err)
		}
		_, _ = stdout.Write(out)
	}
	return nil
}
