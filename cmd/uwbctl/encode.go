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
	"os"

	"github.com/ZaparooProject/go-uwb/codec"
	"github.com/ZaparooProject/go-uwb/internal/logging"
	"github.com/ZaparooProject/go-uwb/params"
	"github.com/ZaparooProject/go-uwb/params/aliro"
	"github.com/ZaparooProject/go-uwb/params/ccc"
	"github.com/ZaparooProject/go-uwb/params/fira"
	"github.com/ZaparooProject/go-uwb/params/radar"
	"github.com/ZaparooProject/go-uwb/tlv"
	"gopkg.in/yaml.v2"
)

func runEncode(args []string, stdout io.Writer) error {
	fs, debug := newFlagSet("encode")
	uci := fs.String("uci", "2.0", "UCI version of the target radio")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(*debug, logging.Config{})
	if fs.NArg() != 1 {
		return errors.New("expected one bundle file")
	}
	version, err := params.ParseVersion(*uci)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	bundle, err := parseBundle(data)
	if err != nil {
		return err
	}
	p, err := paramsFromBundle(bundle)
	if err != nil {
		return err
	}
	buf, err := codec.Encode(p, version)
	if err != nil {
		return err
	}
	return printTLVs(stdout, buf)
}

func parseBundle(data []byte) (params.Bundle, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse bundle: %w", err)
	}
	return params.Bundle(raw), nil
}

// paramsFromBundle builds the session opening parameters of the bundle's
// protocol.
func paramsFromBundle(b params.Bundle) (params.Params, error) {
	switch b.ProtocolName() {
	case params.ProtocolFira:
		return fira.OpenSessionFromBundle(b)
	case params.ProtocolCcc:
		return ccc.OpenRangingFromBundle(b)
	case params.ProtocolAliro:
		return aliro.OpenRangingFromBundle(b)
	case params.ProtocolRadar:
		return radar.OpenSessionFromBundle(b)
	default:
		return nil, fmt.Errorf("%w: %q", codec.ErrUnsupportedProtocol, b.ProtocolName())
	}
}

func printTLVs(w io.Writer, buf *tlv.Buffer) error {
	_, _ = fmt.Fprintf(w, "params: %d\n", buf.NumParams())
	_, _ = fmt.Fprintf(w, "hex:    %s\n", hex.EncodeToString(buf.Bytes()))
	d, err := tlv.Parse(buf.Bytes(), tlv.AnyCount, buf.Format())
	if err != nil {
		return err
	}
	for _, r := range d.Records() {
		_, _ = fmt.Fprintf(w, "  0x%02X [%d] %s\n", r.Tag, len(r.Value), hex.EncodeToString(r.Value))
	}
	return nil
}
