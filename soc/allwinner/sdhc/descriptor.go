// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import "encoding/binary"

// Descriptor status flags (spec.md §3). The walker only acts on HOLD
// and LAST; ERROR, CHAIN, FIRST and NOIRQ are part of the guest-visible
// descriptor model but carry no behavior of their own in this core.
const (
	DescHOLD  = 1 << 31
	DescERROR = 1 << 30
	DescCHAIN = 1 << 4
	DescFIRST = 1 << 3
	DescLAST  = 1 << 2
	DescNOIRQ = 1 << 1
)

// descriptorSize is the in-memory footprint of one transfer descriptor:
// status, size, addr, next, all little-endian uint32 (spec.md §3).
const descriptorSize = 16

// maxDescriptorSegment is the size a zero-valued descriptor Size field
// denotes (spec.md §3: "value 0 denotes 0x10000 (64 KiB)").
const maxDescriptorSegment = 0x10000

// descriptor is one entry of the guest-memory-resident singly-linked
// transfer descriptor chain walked by the DMA engine.
type descriptor struct {
	Status uint32
	Size   uint32
	Addr   uint32
	Next   uint32
}

func decodeDescriptor(buf []byte) descriptor {
	return descriptor{
		Status: binary.LittleEndian.Uint32(buf[0:4]),
		Size:   binary.LittleEndian.Uint32(buf[4:8]),
		Addr:   binary.LittleEndian.Uint32(buf[8:12]),
		Next:   binary.LittleEndian.Uint32(buf[12:16]),
	}
}

func (d descriptor) encode() []byte {
	buf := make([]byte, descriptorSize)
	binary.LittleEndian.PutUint32(buf[0:4], d.Status)
	binary.LittleEndian.PutUint32(buf[4:8], d.Size)
	binary.LittleEndian.PutUint32(buf[8:12], d.Addr)
	binary.LittleEndian.PutUint32(buf[12:16], d.Next)
	return buf
}

// segment returns the number of bytes this descriptor describes, with
// the zero-means-64KiB special case applied (spec.md §3, §4.5).
func (d descriptor) segment() uint32 {
	if d.Size == 0 {
		return maxDescriptorSegment
	}
	return d.Size
}

// bufferAddr returns the descriptor's buffer address with its low two
// bits masked off, as required by spec.md §3.
func (d descriptor) bufferAddr() uint32 {
	return d.Addr &^ 0x3
}
