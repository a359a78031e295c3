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

package uwb

import (
	"fmt"

	"github.com/ZaparooProject/go-uwb/internal/logging"
)

// debugf logs a formatted message at debug level on the uwb component.
func debugf(format string, args ...any) {
	logger := logging.Component("uwb")
	logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// debugln logs its arguments at debug level on the uwb component.
func debugln(args ...any) {
	logger := logging.Component("uwb")
	logger.Debug().Msg(fmt.Sprint(args...))
}
