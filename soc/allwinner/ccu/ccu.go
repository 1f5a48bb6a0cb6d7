// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ccu implements a minimal Allwinner H3 Clock Control Unit
// register file, covered by spec.md only as a register-file shaped
// peripheral external to the SDHC core. Its one notable behavior is
// the PLL lock invariant from spec.md §3/§6: PLL-family registers, once
// written with their ENABLE bit set, read back with LOCK asserted.
package ccu

import "github.com/usbarmory/sdhc-emu/soc/allwinner/regfile"

// Register offsets (H3 CCU memory map, PLL-family subset relevant to
// the board wiring this device would sit alongside).
const (
	PLL_CPUX_CTRL       = 0x000
	PLL_AUDIO_CTRL      = 0x008
	PLL_PERIPH0_CTRL    = 0x028
	SD_MMC0_CLK         = 0x088
	SD_MMC1_CLK         = 0x08c
	SD_MMC2_CLK         = 0x090
	BUS_CLK_GATING_REG1 = 0x064
)

// ENABLE and LOCK bit positions, common to every PLL_*_CTRL register.
const (
	EnableBit = 31
	LockBit   = 28
)

var pll = map[uint32]bool{
	PLL_CPUX_CTRL:    true,
	PLL_AUDIO_CTRL:   true,
	PLL_PERIPH0_CTRL: true,
}

func resets() map[uint32]uint32 {
	return map[uint32]uint32{
		PLL_CPUX_CTRL:       0x0000_1000,
		PLL_AUDIO_CTRL:      0x0000_0000,
		PLL_PERIPH0_CTRL:    0x0000_1000,
		SD_MMC0_CLK:         0x0000_0000,
		SD_MMC1_CLK:         0x0000_0000,
		SD_MMC2_CLK:         0x0000_0000,
		BUS_CLK_GATING_REG1: 0x0000_0000,
	}
}

// CCU is the Clock Control Unit register file.
type CCU struct {
	*regfile.File
}

// New returns a CCU with every register at its reset value.
func New() *CCU {
	c := &CCU{}
	c.File = regfile.New("ccu", resets(), c.onWrite)
	return c
}

func (c *CCU) onWrite(f *regfile.File, offset uint32, val uint32) {
	if !pll[offset] {
		return
	}

	if val&(1<<EnableBit) != 0 {
		val |= 1 << LockBit
		f.Set(offset, val)
	}
}
