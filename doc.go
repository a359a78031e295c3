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

/*
Package uwb drives Ultra-Wideband ranging chips that speak the UCI protocol.

A Radio sits in front of one or more chips reached through a Bridge. The
uci package provides a Bridge over any packet Transport; transports for
UART, SPI and the Linux character device live under transport/.

Features:
  - Multi-chip initialization, reset and country code handling
  - FiRa, CCC, ALIRO and radar session parameters (see params/ and codec/)
  - TLV encoding in short and wide length formats (see tlv/)
  - Typed notifications delivered per category by a Dispatcher
  - Ranging session state machines (see session/ and session/pacs/)
  - Retry logic with configurable backoff

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-uwb"
	    "github.com/ZaparooProject/go-uwb/transport/uart"
	    "github.com/ZaparooProject/go-uwb/uci"
	)

	t, err := uart.New("/dev/ttyACM0", 0)
	if err != nil {
	    log.Fatal(err)
	}

	bridge, err := uci.New(map[string]uwb.Transport{"chip0": t})
	if err != nil {
	    log.Fatal(err)
	}

	radio, err := uwb.NewRadio(bridge, uwb.WithChips("chip0"))
	if err != nil {
	    log.Fatal(err)
	}
	defer radio.Close()

	infos, err := radio.InitializeAll(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println("UCI version:", infos["chip0"].Version())

	radio.Dispatcher().SetListener(uwb.CategorySession, func(n uwb.Notification) {
	    if rd, ok := n.(uwb.RangeData); ok {
	        fmt.Println("range data", rd.SequenceNumber)
	    }
	})

Configuration:

Session parameters are encoded per protocol and version by the
ConfigurationManager, which also decodes capability responses:

	cm := uwb.NewConfigurationManager(radio)
	status := cm.SetAppConfigurations(ctx, sessionID, openParams, "chip0", version)

Error Handling:

Bridge failures come back as *BridgeError and match the package sentinels:

	if errors.Is(err, uwb.ErrTransportTimeout) {
	    // retry later
	}

Thread Safety:

Radio, Dispatcher and ConfigurationManager are safe for concurrent use.
Commands to one chip are serialized; a chip handles one command at a time.
*/
package uwb
