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
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ZaparooProject/go-uwb/codec"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/params"
	"gopkg.in/yaml.v2"
)

var targets = map[string]codec.Target{
	"open":    codec.TargetOpenSession,
	"spec":    codec.TargetSpecification,
	"started": codec.TargetRangingStarted,
}

func runDecode(args []string, stdout io.Writer) error {
	fs, debug := newFlagSet("decode")
	protocol := fs.String("protocol", params.ProtocolFira, "protocol of the TLVs")
	target := fs.String("target", "open", "parameter object: open, spec or started")
	hexData := fs.String("hex", "", "TLV bytes in hex; spaces and colons are ignored")
	uci := fs.String("uci", "2.0", "UCI version of the radio that produced the TLVs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(*debug, logging.Config{})

	t, ok := targets[*target]
	if !ok {
		return fmt.Errorf("unknown target %q", *target)
	}
	if *hexData == "" {
		return errors.New("-hex is required")
	}
	raw, err := parseHex(*hexData)
	if err != nil {
		return err
	}
	version, err := params.ParseVersion(*uci)
	if err != nil {
		return err
	}

	p, err := codec.Decode(*protocol, raw, t, version)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(map[string]any(p.ToBundle()))
	if err != nil {
		return fmt.Errorf("failed to render bundle: %w", err)
	}
	_, err = stdout.Write(out)
	return err
}

func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}
