// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sdhc implements the emulation core of an Allwinner H3 SD/MMC
// Host Controller (SDHC): register decode, command dispatch, the PIO
// FIFO path, the internal DMA descriptor engine, and interrupt
// aggregation for a single card slot.
//
// This package models the *device* side of the MMIO boundary: the
// struct fields below are the registers a guest driver reads and
// writes, not a base address into real memory. Compare
// soc/nxp/usdhc in the teacher corpus, which models the opposite side
// of an equivalent interface against real NXP silicon.
package sdhc

// Register offsets, p.4012-equivalent memory map for the Allwinner H3
// SD/MMC Host Controller (spec.md §6).
const (
	GCTL  = 0x00
	CKCR  = 0x04
	TMOR  = 0x08
	BWDR  = 0x0c
	BKSR  = 0x10
	BYCR  = 0x14
	CMDR  = 0x18
	CAGR  = 0x1c
	RESP0 = 0x20
	RESP1 = 0x24
	RESP2 = 0x28
	RESP3 = 0x2c
	IMKR  = 0x30
	MISR  = 0x34
	RISR  = 0x38
	STAR  = 0x3c
	FWLR  = 0x40
	FUNS  = 0x44
	DBGC  = 0x50
	A12A  = 0x58
	NTSR  = 0x5c
	SDBG  = 0x60
	HWRST = 0x78
	DMAC  = 0x80
	DLBA  = 0x84
	IDST  = 0x88
	IDIE  = 0x8c
	THLDC = 0x100
	DSBD  = 0x10c

	// CRC family: response_crc, data_crc[0..7], status_crc. Read-only
	// storage, writes ignored (spec.md §4.1).
	CRC_RESPONSE  = 0x110
	CRC_DATA0     = 0x114
	CRC_DATA1     = 0x118
	CRC_DATA2     = 0x11c
	CRC_DATA3     = 0x120
	CRC_DATA4     = 0x124
	CRC_DATA5     = 0x128
	CRC_DATA6     = 0x12c
	CRC_DATA7     = 0x130
	CRC_STATUS    = 0x134

	FIFO = 0x200
)

// GCTL (global_ctl) bit positions.
const (
	GCTL_SOFT_RST = 0
	GCTL_FIFO_RST = 1
	GCTL_DMA_RST  = 2
	GCTL_INT_ENB  = 4
	GCTL_DMA_ENB  = 5
)

// GCTL bits that are self-clearing: they always read back as 0
// regardless of what the guest last wrote (spec.md §3 invariants).
const gctlSelfClearMask = (1 << GCTL_DMA_RST) | (1 << GCTL_FIFO_RST) | (1 << GCTL_SOFT_RST)

// CMDR (command) bit positions. The low 6 bits are the command index
// (spec.md §4.4: "cmd = command & 0x3F").
const (
	CMDR_CMD_INDEX_MASK = 0x3f
	CMDR_RESPONSE       = 6
	CMDR_RESPONSE_LONG  = 7
	CMDR_CHECK_RESP_CRC = 8
	CMDR_DATA           = 9
	CMDR_WRITE          = 10
	CMDR_AUTOSTOP       = 12
	CMDR_WAIT_PRE_OVER  = 13
	CMDR_SEND_INIT_SEQ  = 15
	CMDR_CLKCHANGE      = 21
	CMDR_LOAD           = 31
)

// IRQ status/mask (irq_status, irq_mask / RISR, MISR, IMKR) bit
// positions that this core gives explicit meaning to. Other bits of
// the word are opaque storage, still subject to the W1C law.
const (
	IRQ_CMD_COMPLETE  = 0
	IRQ_NO_RESPONSE   = 1
	IRQ_DATA_COMPLETE = 2
	IRQ_AUTOCMD_DONE  = 3
	IRQ_CARD_INSERT   = 4
	IRQ_CARD_REMOVE   = 5
)

// STAR (status) bit positions.
const (
	STAR_CARD_PRESENT = 8
)

// IDST (dmac_status) bit positions and write-one-to-clear mask
// (spec.md §9 open question: "SD_IDST write mask").
const (
	IDST_TRANSMIT_IRQ    = 0
	IDST_RECEIVE_IRQ     = 1
	IDST_SUM_RECEIVE_IRQ = 8

	SD_IDST_WR_MASK = 0x3ff
)

// Reset values (spec.md §6, bit-exact).
var resetValues = map[uint32]uint32{
	GCTL:          0x0000_0300,
	CKCR:          0x0000_0000,
	TMOR:          0xffff_ff40,
	BWDR:          0x0000_0000,
	BKSR:          0x0000_0200,
	BYCR:          0x0000_0200,
	CMDR:          0x0000_0000,
	CAGR:          0x0000_0000,
	RESP0:         0x0000_0000,
	RESP1:         0x0000_0000,
	RESP2:         0x0000_0000,
	RESP3:         0x0000_0000,
	IMKR:          0x0000_0000,
	MISR:          0x0000_0000,
	RISR:          0x0000_0000,
	STAR:          0x0000_0100,
	FWLR:          0x000f_0000,
	FUNS:          0x0000_0000,
	DBGC:          0x0000_0000,
	A12A:          0x0000_ffff,
	NTSR:          0x0000_0001,
	SDBG:          0x0000_0000,
	HWRST:         0x0000_0001,
	DMAC:          0x0000_0000,
	DLBA:          0x0000_0000,
	IDST:          0x0000_0000,
	IDIE:          0x0000_0000,
	THLDC:         0x0000_0000,
	DSBD:          0x0000_0000,
	CRC_RESPONSE:  0x0000_0000,
	CRC_DATA0:     0x0000_0000,
	CRC_DATA1:     0x0000_0000,
	CRC_DATA2:     0x0000_0000,
	CRC_DATA3:     0x0000_0000,
	CRC_DATA4:     0x0000_0000,
	CRC_DATA5:     0x0000_0000,
	CRC_DATA6:     0x0000_0000,
	CRC_DATA7:     0x0000_0000,
	CRC_STATUS:    0x0000_0000,
}

func isCRCOffset(offset uint32) bool {
	return offset >= CRC_RESPONSE && offset <= CRC_STATUS
}
