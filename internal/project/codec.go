/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package project reads and writes boards in the versioned binary .riv format.
//
// The layout is big-endian throughout:
//
//	header  int32 version (=100) | int32 cx | int32 cy | int64 count | float64 zoom
//	record  string path | blob image | bool flipped | int32 x | int32 y | float64 scale | float64 z
//
// A string is a uint32 byte length followed by UTF-16BE code units; 0xFFFFFFFF
// is the null string. A blob is a uint32 length followed by the bytes. A bool
// is one byte. Positions are truncated to integers on write.
//
// A record whose path is empty consists of the path field alone and is skipped
// on load.
package project

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/encoding/unicode"

	"gorefcanvas/internal/geom"
)

// Version is the only format version this package reads and writes.
const Version int32 = 100

const nullLength = 0xFFFFFFFF

// Board is the persisted state of one board.
type Board struct {
	// Center is the scene point at the middle of the viewport.
	Center geom.Point
	Zoom   float64
	Items  []Record
}

// Record is one persisted item.
type Record struct {
	Path    string
	Image   []byte
	Flipped bool
	Pos     geom.Point
	Scale   float64
	Z       float64
}

// LoadReport summarises a decode.
type LoadReport struct {
	Version int32
	// Declared is the record count from the header.
	Declared int64
	Loaded   int
	// Skipped counts empty-path placeholder records.
	Skipped int
}

// Progress is called after each record with the number processed so far.
type Progress func(done, total int)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Encode writes b to w. It stops with ctx.Err() if ctx is cancelled between records.
func Encode(ctx context.Context, w io.Writer, b Board, progress Progress) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.int32(Version)
	e.int32(truncate(b.Center.X))
	e.int32(truncate(b.Center.Y))
	e.int64(int64(len(b.Items)))
	e.float64(b.Zoom)
	for i, r := range b.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.string(r.Path)
		e.blob(r.Image)
		e.bool(r.Flipped)
		e.int32(truncate(r.Pos.X))
		e.int32(truncate(r.Pos.Y))
		e.float64(r.Scale)
		e.float64(r.Z)
		if e.err != nil {
			return e.err
		}
		if progress != nil {
			progress(i+1, len(b.Items))
		}
	}
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// Decode reads a board from r. A version mismatch fails before any record is
// read. Empty-path placeholders are skipped and counted in the report.
func Decode(ctx context.Context, r io.Reader, progress Progress) (Board, LoadReport, error) {
	d := &decoder{r: bufio.NewReader(r)}
	var rep LoadReport
	rep.Version = d.int32()
	if d.err != nil {
		return Board{}, rep, d.fail("header")
	}
	if rep.Version != Version {
		return Board{}, rep, &VersionError{Got: rep.Version, Want: Version}
	}
	cx, cy := d.int32(), d.int32()
	rep.Declared = d.int64()
	zoom := d.float64()
	if d.err != nil {
		return Board{}, rep, d.fail("header")
	}
	if rep.Declared < 0 {
		return Board{}, rep, fmt.Errorf("%w: negative item count %d", ErrCorrupt, rep.Declared)
	}
	if !(zoom > 0) || math.IsInf(zoom, 0) {
		return Board{}, rep, fmt.Errorf("%w: zoom %v", ErrCorrupt, zoom)
	}
	b := Board{Center: geom.Pt(float64(cx), float64(cy)), Zoom: zoom}
	total := int(min(rep.Declared, math.MaxInt32))
	for i := int64(0); i < rep.Declared; i++ {
		if err := ctx.Err(); err != nil {
			return Board{}, rep, err
		}
		path, null := d.string()
		if d.err != nil {
			return Board{}, rep, d.fail(fmt.Sprintf("record %d", i))
		}
		if null || path == "" {
			rep.Skipped++
			continue
		}
		rec := Record{Path: path}
		rec.Image = d.blob()
		rec.Flipped = d.bool()
		x, y := d.int32(), d.int32()
		rec.Pos = geom.Pt(float64(x), float64(y))
		rec.Scale = d.float64()
		rec.Z = d.float64()
		if d.err != nil {
			return Board{}, rep, d.fail(fmt.Sprintf("record %d", i))
		}
		b.Items = append(b.Items, rec)
		rep.Loaded++
		if progress != nil {
			progress(int(i)+1, total)
		}
	}
	return b, rep, nil
}

func truncate(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

type encoder struct {
	w   io.Writer
	buf [8]byte
	err error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) int32(v int32) {
	binary.BigEndian.PutUint32(e.buf[:4], uint32(v))
	e.write(e.buf[:4])
}

func (e *encoder) uint32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) int64(v int64) {
	binary.BigEndian.PutUint64(e.buf[:8], uint64(v))
	e.write(e.buf[:8])
}

func (e *encoder) float64(v float64) {
	binary.BigEndian.PutUint64(e.buf[:8], math.Float64bits(v))
	e.write(e.buf[:8])
}

func (e *encoder) bool(v bool) {
	e.buf[0] = 0
	if v {
		e.buf[0] = 1
	}
	e.write(e.buf[:1])
}

func (e *encoder) string(s string) {
	if e.err != nil {
		return
	}
	u, err := utf16be.NewEncoder().Bytes([]byte(s))
	if err != nil {
		e.err = fmt.Errorf("encode path %q: %w", s, err)
		return
	}
	e.uint32(uint32(len(u)))
	e.write(u)
}

func (e *encoder) blob(p []byte) {
	if uint64(len(p)) >= nullLength {
		e.err = fmt.Errorf("image of %d bytes is too large", len(p))
		return
	}
	e.uint32(uint32(len(p)))
	e.write(p)
}

type decoder struct {
	r   io.Reader
	buf [8]byte
	err error
}

func (d *decoder) fail(where string) error {
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, where, d.err)
}

func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return nil
	}
	_, d.err = io.ReadFull(d.r, d.buf[:n])
	return d.buf[:n]
}

func (d *decoder) int32() int32 {
	b := d.read(4)
	if d.err != nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (d *decoder) uint32() uint32 {
	b := d.read(4)
	if d.err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (d *decoder) int64() int64 {
	b := d.read(8)
	if d.err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (d *decoder) float64() float64 {
	b := d.read(8)
	if d.err != nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (d *decoder) bool() bool {
	b := d.read(1)
	if d.err != nil {
		return false
	}
	return b[0] != 0
}

// bytesN reads n bytes without trusting n for the allocation size.
func (d *decoder) bytesN(n uint32) []byte {
	if d.err != nil {
		return nil
	}
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, d.r, int64(n))
	if err != nil {
		if err == io.EOF && got < int64(n) {
			err = io.ErrUnexpectedEOF
		}
		d.err = err
		return nil
	}
	return buf.Bytes()
}

func (d *decoder) string() (s string, null bool) {
	n := d.uint32()
	if d.err != nil {
		return "", false
	}
	if n == nullLength {
		return "", true
	}
	if n%2 != 0 {
		d.err = fmt.Errorf("odd string length %d", n)
		return "", false
	}
	raw := d.bytesN(n)
	if d.err != nil {
		return "", false
	}
	u, err := utf16be.NewDecoder().Bytes(raw)
	if err != nil {
		d.err = err
		return "", false
	}
	return string(u), false
}

func (d *decoder) blob() []byte {
	n := d.uint32()
	if d.err != nil || n == nullLength {
		return nil
	}
	return d.bytesN(n)
}
