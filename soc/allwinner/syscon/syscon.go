// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package syscon implements a minimal Allwinner H3 SYSCON register
// file, covered by spec.md only as a register-file shaped peripheral
// external to the SDHC core. Its only notable behavior is that VER is
// read-only: writes to it are silently discarded.
package syscon

import "github.com/usbarmory/sdhc-emu/soc/allwinner/regfile"

// Register offsets (H3 SYSCON memory map subset).
const (
	VER            = 0x24
	SRAM_CTRL_REG0 = 0x00
	SRAM_CTRL_REG1 = 0x04
	EMAC_EPHY_CLK  = 0x30
)

func resets() map[uint32]uint32 {
	return map[uint32]uint32{
		VER:            0x0000_0001,
		SRAM_CTRL_REG0: 0x0000_0000,
		SRAM_CTRL_REG1: 0x0000_0000,
		EMAC_EPHY_CLK:  0x0000_0058,
	}
}

// SYSCON is the system configuration register file.
type SYSCON struct {
	*regfile.File
}

// New returns a SYSCON with every register at its reset value.
func New() *SYSCON {
	s := &SYSCON{}
	s.File = regfile.New("syscon", resets(), s.onWrite)
	return s
}

func (s *SYSCON) onWrite(f *regfile.File, offset uint32, val uint32) {
	if offset == VER {
		f.Set(offset, resets()[VER])
	}
}
