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

package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want zerolog.Level
	}{
		{name: "empty", in: "", want: zerolog.WarnLevel},
		{name: "debug", in: "debug", want: zerolog.DebugLevel},
		{name: "mixed case", in: " Error ", want: zerolog.ErrorLevel},
		{name: "unknown", in: "loud", want: zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.in, zerolog.WarnLevel))
		})
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json"}, &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Str("chip", "default").Msg("ready")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ready", line["message"])
	assert.Equal(t, "default", line["chip"])
}

func TestNew_RotatingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "uwb.log")
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", File: path}, &buf)
	logger.Info().Msg("to both")

	assert.Contains(t, buf.String(), "to both")
	assert.FileExists(t, path)
}
