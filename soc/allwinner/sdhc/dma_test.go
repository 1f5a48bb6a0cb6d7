// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import (
	"testing"

	"github.com/usbarmory/sdhc-emu/card"
	"github.com/usbarmory/sdhc-emu/internal/guestmem"
)

// A chain that never sets LAST must not hang the walker: the
// MaxDescriptorChain safety cap aborts it (spec.md §9 open question).
func TestDMAUnboundedChainIsCapped(t *testing.T) {
	const base = 0x4000
	const stride = 0x20
	const bufAddr = 0x1_0000

	count := MaxDescriptorChain + 8

	bus := card.NewRecord()
	mem := guestmem.NewRAM(0, base+count*stride+0x10000)
	dev := New(bus, mem)

	for i := 0; i < count; i++ {
		addr := uint32(base + i*stride)
		next := addr + stride
		writeDesc(t, mem, addr, descriptor{Status: DescHOLD, Size: 4, Addr: bufAddr, Next: next})
	}

	data := make([]byte, 4*count)
	bus.ReadQueue = append([]byte{}, data...)

	dev.WriteRegister(GCTL, 1<<GCTL_DMA_ENB)
	dev.WriteRegister(BKSR, 4)
	dev.WriteRegister(BYCR, uint32(len(data)))
	dev.WriteRegister(DLBA, base)

	dev.WriteRegister(CMDR, uint32(18)|1<<CMDR_DATA|1<<CMDR_LOAD)

	if len(bus.Reads) >= len(data) {
		t.Errorf("walker consumed the full malformed chain (%d bytes), want it capped below %d", len(bus.Reads), len(data))
	}
}

// DMA is a no-op when DMA_ENB is clear.
func TestDMANoOpWithoutEnable(t *testing.T) {
	dev, bus, mem := newTestDevice()

	const desc = 0x1000
	writeDesc(t, mem, desc, descriptor{Status: DescHOLD | DescLAST, Size: 16, Addr: 0x2000})

	dev.WriteRegister(BKSR, 16)
	dev.WriteRegister(BYCR, 16)
	dev.WriteRegister(DLBA, desc)

	dev.runDMA()

	if len(bus.Reads) != 0 || len(bus.Writes) != 0 {
		t.Errorf("runDMA moved bytes with DMA_ENB clear")
	}
}

// A DMA read is a no-op when the bus has no data ready.
func TestDMANoOpWithoutDataReady(t *testing.T) {
	dev, bus, mem := newTestDevice()
	bus.Inserted = false

	const desc = 0x1000
	writeDesc(t, mem, desc, descriptor{Status: DescHOLD | DescLAST, Size: 16, Addr: 0x2000})

	dev.WriteRegister(GCTL, 1<<GCTL_DMA_ENB)
	dev.WriteRegister(BKSR, 16)
	dev.WriteRegister(BYCR, 16)
	dev.WriteRegister(DLBA, desc)

	dev.runDMA()

	if len(bus.Reads) != 0 {
		t.Errorf("runDMA read bytes with no data ready")
	}
}
