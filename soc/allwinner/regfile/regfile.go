// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package regfile implements the common shape shared by the Allwinner
// H3's "register-file shaped" companion peripherals (CCU, SYSCON): a
// flat array of 32-bit registers addressed by offset, each with a reset
// default, where most offsets are plain load/store and a few need a
// device-specific side effect on write.
package regfile

import "github.com/usbarmory/sdhc-emu/internal/ratelog"

// WriteFunc is called for every write a File accepts at a known offset,
// after the new value is stored, so it can apply further side effects
// (e.g. forcing a LOCK bit) or replace the stored value: a hook that
// needs a different final value stores it itself via Set.
type WriteFunc func(f *File, offset uint32, val uint32)

// File is a flat register array keyed by byte offset, with reset
// defaults and an optional per-register write hook.
type File struct {
	name    string
	regs    map[uint32]uint32
	resets  map[uint32]uint32
	onWrite WriteFunc
	log     *ratelog.Logger
}

// New creates a register file named name (used only in guest-error log
// lines) with the given offset->reset-value table. onWrite may be nil.
func New(name string, resets map[uint32]uint32, onWrite WriteFunc) *File {
	f := &File{
		name:    name,
		regs:    make(map[uint32]uint32, len(resets)),
		resets:  resets,
		onWrite: onWrite,
		log:     ratelog.New(),
	}

	f.Reset()

	return f
}

// Reset restores every register to its declared reset value.
func (f *File) Reset() {
	for off, val := range f.resets {
		f.regs[off] = val
	}
}

// Known reports whether offset is a defined register.
func (f *File) Known(offset uint32) bool {
	_, ok := f.resets[offset]
	return ok
}

// Get returns the raw stored value at offset without side effects, for
// use from a WriteFunc or by tests; it does not log or validate offset.
func (f *File) Get(offset uint32) uint32 {
	return f.regs[offset]
}

// Set stores a raw value at offset without invoking onWrite, for use
// from a WriteFunc that needs to override the plain-store result.
func (f *File) Set(offset uint32, val uint32) {
	f.regs[offset] = val
}

// Read returns the register at offset, or 0 and a logged guest error if
// offset is not a known register.
func (f *File) Read(offset uint32) uint32 {
	if !f.Known(offset) {
		f.log.Guest(offset, "%s: read of unrecognized offset %#x", f.name, offset)
		return 0
	}

	return f.regs[offset]
}

// Write stores val at offset, invoking the write hook if one is
// registered. Writes to unknown offsets are logged and discarded.
func (f *File) Write(offset uint32, val uint32) {
	if !f.Known(offset) {
		f.log.Guest(offset, "%s: write of unrecognized offset %#x", f.name, offset)
		return
	}

	f.regs[offset] = val

	if f.onWrite != nil {
		f.onWrite(f, offset, val)
	}
}
