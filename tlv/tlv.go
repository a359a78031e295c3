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

// Package tlv implements the tag-length-value records carried by UCI
// application configuration and capability messages.
//
// A Buffer accumulates records for one encode call and tracks a logical
// parameter count next to the record count; the two differ when one
// logical field expands into several wire records. Parse turns raw bytes
// back into an immutable Decoded view.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Format describes the wire shape of a TLV stream. The tag is always one
// byte; the length field width is fixed per protocol.
type Format struct {
	// LengthWidth is the size of the length field in bytes (1 or 2).
	// Two-byte lengths are little-endian.
	LengthWidth int
}

var (
	// Short is the format used by FiRa, CCC and ALIRO configuration data.
	Short = Format{LengthWidth: 1}
	// Wide is the format used by radar configuration data.
	Wide = Format{LengthWidth: 2}
)

// AnyCount disables the record count check in Parse.
const AnyCount = -1

// maxLength returns the largest value length the format can express.
func (f Format) maxLength() int {
	if f.LengthWidth == 2 {
		return 0xFFFF
	}
	return 0xFF
}

func (f Format) valid() bool {
	return f.LengthWidth == 1 || f.LengthWidth == 2
}

// ErrValueTooLong is recorded on a Buffer when a value exceeds the
// length field width.
var ErrValueTooLong = errors.New("tlv value too long for length field")

// Record is a single tag-length-value entry.
type Record struct {
	Value []byte
	Tag   byte
}

// Buffer is an append-only TLV encoder.
type Buffer struct {
	err     error
	buf     []byte
	format  Format
	records int
	params  int
}

// NewBuffer creates an empty buffer for the given format.
func NewBuffer(format Format) *Buffer {
	if !format.valid() {
		format = Short
	}
	return &Buffer{format: format}
}

// put appends one record and counts it as one logical parameter.
func (b *Buffer) put(tag byte, value []byte) *Buffer {
	b.putRecord(tag, value)
	b.params++
	return b
}

func (b *Buffer) putRecord(tag byte, value []byte) {
	if b.err != nil {
		return
	}
	if len(value) > b.format.maxLength() {
		b.err = fmt.Errorf("tag 0x%02X with %d bytes: %w", tag, len(value), ErrValueTooLong)
		return
	}
	b.buf = append(b.buf, tag)
	if b.format.LengthWidth == 2 {
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(len(value)))
	} else {
		b.buf = append(b.buf, byte(len(value)))
	}
	b.buf = append(b.buf, value...)
	b.records++
}

// PutByte appends a one byte value.
func (b *Buffer) PutByte(tag, value byte) *Buffer {
	return b.put(tag, []byte{value})
}

// PutUint16 appends a little-endian 16-bit value.
func (b *Buffer) PutUint16(tag byte, value uint16) *Buffer {
	return b.put(tag, binary.LittleEndian.AppendUint16(nil, value))
}

// PutUint32 appends a little-endian 32-bit value.
func (b *Buffer) PutUint32(tag byte, value uint32) *Buffer {
	return b.put(tag, binary.LittleEndian.AppendUint32(nil, value))
}

// PutUint64 appends a little-endian 64-bit value.
func (b *Buffer) PutUint64(tag byte, value uint64) *Buffer {
	return b.put(tag, binary.LittleEndian.AppendUint64(nil, value))
}

// PutBytes appends a raw value. The slice is copied.
func (b *Buffer) PutBytes(tag byte, value []byte) *Buffer {
	return b.put(tag, append([]byte(nil), value...))
}

// PutList appends one record per value under the same tag and counts the
// whole list as a single logical parameter.
func (b *Buffer) PutList(tag byte, values [][]byte) *Buffer {
	if len(values) == 0 {
		return b
	}
	for _, v := range values {
		b.putRecord(tag, append([]byte(nil), v...))
	}
	b.params++
	return b
}

// AddParams bumps the logical parameter count without writing a record.
func (b *Buffer) AddParams(n int) *Buffer {
	b.params += n
	return b
}

// Err returns the first error recorded while appending.
func (b *Buffer) Err() error {
	return b.err
}

// Bytes returns a copy of the encoded stream.
func (b *Buffer) Bytes() []byte {
	return append([]byte(nil), b.buf...)
}

// Len returns the encoded length in bytes.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// NumParams returns the logical parameter count.
func (b *Buffer) NumParams() int {
	return b.params
}

// NumRecords returns the number of wire records.
func (b *Buffer) NumRecords() int {
	return b.records
}

// Format returns the buffer's wire format.
func (b *Buffer) Format() Format {
	return b.format
}

// Decoded is the parsed, read-only view of a TLV stream.
type Decoded struct {
	index   map[byte][]int
	records []Record
	format  Format
}

// Parse decodes data into records. When expected is not AnyCount the
// number of records must match it. Malformed input is reported as a
// *ParseError; Parse never panics on untrusted bytes.
func Parse(data []byte, expected int, format Format) (*Decoded, error) {
	if !format.valid() {
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported length width %d", format.LengthWidth)}
	}

	d := &Decoded{format: format, index: make(map[byte][]int)}
	offset := 0
	for offset < len(data) {
		header := 1 + format.LengthWidth
		if len(data)-offset < header {
			return nil, &ParseError{
				Offset:    offset,
				Tag:       data[offset],
				Available: len(data) - offset,
				Reason:    "truncated record header",
			}
		}
		tag := data[offset]
		var length int
		if format.LengthWidth == 2 {
			length = int(binary.LittleEndian.Uint16(data[offset+1:]))
		} else {
			length = int(data[offset+1])
		}
		start := offset + header
		if start+length > len(data) {
			return nil, &ParseError{
				Offset:    offset,
				Tag:       tag,
				Declared:  length,
				Available: len(data) - start,
				Reason:    "declared length exceeds buffer",
			}
		}
		value := append([]byte(nil), data[start:start+length]...)
		d.index[tag] = append(d.index[tag], len(d.records))
		d.records = append(d.records, Record{Tag: tag, Value: value})
		offset = start + length
	}

	if expected != AnyCount && expected != len(d.records) {
		return nil, &ParseError{
			Offset:   offset,
			Declared: expected,
			Reason:   fmt.Sprintf("expected %d records, found %d", expected, len(d.records)),
		}
	}
	return d, nil
}

// Len returns the number of records.
func (d *Decoded) Len() int {
	return len(d.records)
}

// Records returns a copy of all records in wire order.
func (d *Decoded) Records() []Record {
	out := make([]Record, len(d.records))
	for i, r := range d.records {
		out[i] = Record{Tag: r.Tag, Value: append([]byte(nil), r.Value...)}
	}
	return out
}

// Has reports whether tag occurs at least once.
func (d *Decoded) Has(tag byte) bool {
	return len(d.index[tag]) > 0
}

// Bytes returns a copy of the first value stored under tag.
func (d *Decoded) Bytes(tag byte) ([]byte, error) {
	idx, ok := d.index[tag]
	if !ok || len(idx) == 0 {
		return nil, fmt.Errorf("tag 0x%02X: %w", tag, ErrTagNotFound)
	}
	return append([]byte(nil), d.records[idx[0]].Value...), nil
}

// All returns copies of every value stored under tag, in wire order.
func (d *Decoded) All(tag byte) [][]byte {
	idx := d.index[tag]
	out := make([][]byte, 0, len(idx))
	for _, i := range idx {
		out = append(out, append([]byte(nil), d.records[i].Value...))
	}
	return out
}

func (d *Decoded) fixed(tag byte, size int) ([]byte, error) {
	v, err := d.Bytes(tag)
	if err != nil {
		return nil, err
	}
	if len(v) != size {
		return nil, &FormatError{Op: fmt.Sprintf("tag 0x%02X", tag), Got: len(v), Want: []int{size}}
	}
	return v, nil
}

// Byte returns a one byte value.
func (d *Decoded) Byte(tag byte) (byte, error) {
	v, err := d.fixed(tag, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Uint16 returns a little-endian 16-bit value.
func (d *Decoded) Uint16(tag byte) (uint16, error) {
	v, err := d.fixed(tag, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v), nil
}

// Uint32 returns a little-endian 32-bit value.
func (d *Decoded) Uint32(tag byte) (uint32, error) {
	v, err := d.fixed(tag, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

// Uint64 returns a little-endian 64-bit value.
func (d *Decoded) Uint64(tag byte) (uint64, error) {
	v, err := d.fixed(tag, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}
