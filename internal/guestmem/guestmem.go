// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package guestmem provides the host-physical memory primitives consumed
// by the DMA descriptor walker: byte-slice read/write against a guest
// address space, with no pointer aliasing between host and guest buffers.
package guestmem

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an access falls outside the backing
// region.
var ErrOutOfRange = errors.New("guestmem: access out of range")

// Memory is the platform service the DMA descriptor walker uses to move
// bytes to and from guest-physical addresses. A real
// platform wiring backs this with the virtual machine's guest RAM region;
// RAM below is a flat-buffer implementation used for tests and the demo
// command.
type Memory interface {
	// ReadAt copies len(buf) bytes starting at addr into buf.
	ReadAt(addr uint32, buf []byte) error
	// WriteAt copies buf into the region starting at addr.
	WriteAt(addr uint32, buf []byte) error
}

// RAM is a bounds-checked, contiguous guest memory region backed by a Go
// byte slice. It never exposes its backing array to callers; ReadAt and
// WriteAt always copy.
type RAM struct {
	base uint32
	data []byte
}

// NewRAM allocates a RAM region of size bytes starting at guest-physical
// address base.
func NewRAM(base uint32, size int) *RAM {
	return &RAM{
		base: base,
		data: make([]byte, size),
	}
}

func (m *RAM) bounds(addr uint32, n int) (int, error) {
	if addr < m.base {
		return 0, fmt.Errorf("%w: addr %#x below base %#x", ErrOutOfRange, addr, m.base)
	}

	off := int(addr - m.base)

	if off < 0 || off+n > len(m.data) {
		return 0, fmt.Errorf("%w: addr %#x len %d exceeds region size %d", ErrOutOfRange, addr, n, len(m.data))
	}

	return off, nil
}

// ReadAt implements Memory.
func (m *RAM) ReadAt(addr uint32, buf []byte) error {
	off, err := m.bounds(addr, len(buf))
	if err != nil {
		return err
	}

	copy(buf, m.data[off:off+len(buf)])

	return nil
}

// WriteAt implements Memory.
func (m *RAM) WriteAt(addr uint32, buf []byte) error {
	off, err := m.bounds(addr, len(buf))
	if err != nil {
		return err
	}

	copy(m.data[off:off+len(buf)], buf)

	return nil
}

// Bytes returns a copy of the whole backing region, for test assertions.
func (m *RAM) Bytes() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// Base returns the guest-physical base address of the region.
func (m *RAM) Base() uint32 {
	return m.base
}
