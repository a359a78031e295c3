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

// Command uwbctl encodes and decodes UWB session parameters, lists
// attached UWB chips and reads their capabilities.
//
//	uwbctl encode [-uci 2.0] bundle.yaml
//	uwbctl decode -protocol fira [-target open] -hex 0001...
//	uwbctl caps [-config uwb.toml]
//	uwbctl detect [-mode safe] [-timeout 2s]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/go-uwb/internal/logging"
)

type command struct {
	run   func(args []string, stdout io.Writer) error
	name  string
	usage string
}

var commands = []command{
	{name: "encode", usage: "encode a YAML parameter bundle to TLVs", run: runEncode},
	{name: "decode", usage: "decode hex TLVs to a YAML parameter bundle", run: runDecode},
	{name: "caps", usage: "initialize configured chips and print their capabilities", run: runCaps},
	{name: "detect", usage: "list attached UWB chips", run: runDetect},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		err := c.run(args[1:], stdout)
		switch {
		case err == nil:
			return 0
		case errors.Is(err, flag.ErrHelp):
			return 2
		default:
			_, _ = fmt.Fprintf(stderr, "uwbctl %s: %v\n", c.name, err)
			return 1
		}
	}
	_, _ = fmt.Fprintf(stderr, "uwbctl: unknown command %q\n", args[0])
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: uwbctl <command> [flags]")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
}

// newFlagSet returns a flag set with the shared -debug flag.
func newFlagSet(name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	return fs, debug
}

func setupLogging(debug bool, cfg logging.Config) {
	if debug {
		cfg.Level = "debug"
	}
	logging.Setup(cfg)
}
