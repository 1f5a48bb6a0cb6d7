// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import (
	"github.com/usbarmory/sdhc-emu/bits"
	"github.com/usbarmory/sdhc-emu/card"
	"github.com/usbarmory/sdhc-emu/internal/guestmem"
	"github.com/usbarmory/sdhc-emu/internal/ratelog"
)

// Device is a single SD/MMC host controller card slot: register
// storage, command dispatch, the PIO FIFO, the DMA descriptor engine,
// and interrupt aggregation. It is not safe for concurrent use: per
// spec.md §5 every MMIO entry point is expected to run to completion
// under the platform's single big device lock before the next one
// starts.
type Device struct {
	// Bus is the abstract SD/MMC bus this slot talks to.
	Bus card.Bus
	// Memory is the guest-physical address space DMA reads and writes.
	Memory guestmem.Memory
	// IRQ, if set, is invoked every time the aggregated interrupt line
	// changes level (spec.md §4.2).
	IRQ func(asserted bool)

	log *ratelog.Logger

	globalCtl      uint32
	clockCtl       uint32
	timeout        uint32
	busWidth       uint32
	blockSize      uint32
	byteCount      uint32
	transferCnt    uint32
	command        uint32
	commandArg     uint32
	response       [4]uint32
	irqMask        uint32
	irqStatus      uint32
	status         uint32
	fifoWLevel     uint32
	fifoFuncSel    uint32
	debugEnable    uint32
	auto12Arg      uint32
	newtimingSet   uint32
	newtimingDebug uint32
	hardwareRst    uint32
	dmac           uint32
	descBase       uint32
	dmacStatus     uint32
	dmacIRQ        uint32
	cardThreshold  uint32
	startbitDetect uint32

	// CRC family: opaque, read-only storage (spec.md §4.1).
	responseCRC uint32
	dataCRC     [8]uint32
	statusCRC   uint32

	irqLine bool
}

// New returns a Device wired to bus and mem, with every register at its
// power-on reset value.
func New(bus card.Bus, mem guestmem.Memory) *Device {
	d := &Device{
		Bus:    bus,
		Memory: mem,
		log:    ratelog.New(),
	}

	d.Reset()

	return d
}

// Reset restores every register to its power-on value (spec.md §4.8).
// transfer_cnt always resets to 0 regardless of BYCR's reset value, and
// the response registers reset to zero.
func (d *Device) Reset() {
	d.globalCtl = resetValues[GCTL]
	d.clockCtl = resetValues[CKCR]
	d.timeout = resetValues[TMOR]
	d.busWidth = resetValues[BWDR]
	d.blockSize = resetValues[BKSR]
	d.byteCount = resetValues[BYCR]
	d.transferCnt = 0
	d.command = resetValues[CMDR]
	d.commandArg = resetValues[CAGR]
	d.response = [4]uint32{}
	d.irqMask = resetValues[IMKR]
	d.irqStatus = resetValues[RISR]
	d.status = resetValues[STAR]
	d.fifoWLevel = resetValues[FWLR]
	d.fifoFuncSel = resetValues[FUNS]
	d.debugEnable = resetValues[DBGC]
	d.auto12Arg = resetValues[A12A]
	d.newtimingSet = resetValues[NTSR]
	d.newtimingDebug = resetValues[SDBG]
	d.hardwareRst = resetValues[HWRST]
	d.dmac = resetValues[DMAC]
	d.descBase = resetValues[DLBA]
	d.dmacStatus = resetValues[IDST]
	d.dmacIRQ = resetValues[IDIE]
	d.cardThreshold = resetValues[THLDC]
	d.startbitDetect = resetValues[DSBD]
	d.responseCRC = 0
	d.dataCRC = [8]uint32{}
	d.statusCRC = 0

	d.updateIRQ()
}

// ReadRegister implements the MMIO Port's read path (spec.md §4.1). It
// only ever receives naturally-aligned 32-bit offsets; access-size and
// alignment refusal is the surrounding bus layer's job (spec.md §6).
func (d *Device) ReadRegister(offset uint32) uint32 {
	switch offset {
	case GCTL:
		return d.globalCtl &^ gctlSelfClearMask
	case CKCR:
		return d.clockCtl
	case TMOR:
		return d.timeout
	case BWDR:
		return d.busWidth
	case BKSR:
		return d.blockSize
	case BYCR:
		return d.byteCount
	case CMDR:
		return d.command &^ (1 << CMDR_LOAD)
	case CAGR:
		return d.commandArg
	case RESP0:
		return d.response[0]
	case RESP1:
		return d.response[1]
	case RESP2:
		return d.response[2]
	case RESP3:
		return d.response[3]
	case IMKR:
		return d.irqMask
	case MISR:
		return d.irqStatus & d.irqMask
	case RISR:
		return d.irqStatus
	case STAR:
		return d.status
	case FWLR:
		return d.fifoWLevel
	case FUNS:
		return d.fifoFuncSel
	case DBGC:
		return d.debugEnable
	case A12A:
		return d.auto12Arg
	case NTSR:
		return d.newtimingSet
	case SDBG:
		return d.newtimingDebug
	case HWRST:
		return d.hardwareRst
	case DMAC:
		return d.dmac
	case DLBA:
		return d.descBase
	case IDST:
		return d.dmacStatus
	case IDIE:
		return d.dmacIRQ
	case THLDC:
		return d.cardThreshold
	case DSBD:
		return d.startbitDetect
	case CRC_RESPONSE:
		return d.responseCRC
	case CRC_DATA0, CRC_DATA1, CRC_DATA2, CRC_DATA3, CRC_DATA4, CRC_DATA5, CRC_DATA6, CRC_DATA7:
		return d.dataCRC[(offset-CRC_DATA0)/4]
	case CRC_STATUS:
		return d.statusCRC
	case FIFO:
		return d.fifoRead()
	default:
		d.log.Guest(offset, "read of unrecognized offset %#x", offset)
		return 0
	}
}

// WriteRegister implements the MMIO Port's write path (spec.md §4.1).
func (d *Device) WriteRegister(offset uint32, val uint32) {
	if isCRCOffset(offset) {
		// CRC family is read-only storage: writes silently succeed
		// with no state change.
		return
	}

	switch offset {
	case GCTL:
		d.globalCtl = val &^ gctlSelfClearMask
		d.updateIRQ()
	case CKCR:
		d.clockCtl = val
	case TMOR:
		d.timeout = val
	case BWDR:
		d.busWidth = val
	case BKSR:
		d.blockSize = val
	case BYCR:
		d.byteCount = val
		d.transferCnt = val
	case CMDR:
		d.command = val
		if bits.IsSet(&val, CMDR_LOAD) {
			d.dispatchCommand()
			d.runDMA()
			d.autoStop()
		}
		d.updateIRQ()
	case CAGR:
		d.commandArg = val
	case RESP0:
		d.response[0] = val
	case RESP1:
		d.response[1] = val
	case RESP2:
		d.response[2] = val
	case RESP3:
		d.response[3] = val
	case IMKR:
		d.irqMask = val
		d.updateIRQ()
	case MISR, RISR:
		d.irqStatus &^= val
		d.updateIRQ()
	case STAR:
		d.status &^= val
		d.updateIRQ()
	case FWLR:
		d.fifoWLevel = val
	case FUNS:
		d.fifoFuncSel = val
	case DBGC:
		d.debugEnable = val
	case A12A:
		d.auto12Arg = val
	case NTSR:
		d.newtimingSet = val
	case SDBG:
		d.newtimingDebug = val
	case HWRST:
		// no implicit reset on write (spec.md §4.1)
		d.hardwareRst = val
	case DMAC:
		d.dmac = val
		d.updateIRQ()
	case DLBA:
		d.descBase = val
	case IDST:
		d.dmacStatus &^= val & SD_IDST_WR_MASK
		d.updateIRQ()
	case IDIE:
		d.dmacIRQ = val
		d.updateIRQ()
	case THLDC:
		d.cardThreshold = val
	case DSBD:
		d.startbitDetect = val
	case FIFO:
		d.fifoWrite(val)
	default:
		d.log.Guest(offset, "write of unrecognized offset %#x", offset)
	}
}

// SetInserted is invoked by whatever owns the abstract SD bus on a card
// insertion or removal event (spec.md §4.7).
func (d *Device) SetInserted(inserted bool) {
	if inserted {
		bits.Set(&d.irqStatus, IRQ_CARD_INSERT)
		bits.Clear(&d.irqStatus, IRQ_CARD_REMOVE)
		bits.Set(&d.status, STAR_CARD_PRESENT)
	} else {
		bits.Clear(&d.irqStatus, IRQ_CARD_INSERT)
		bits.Set(&d.irqStatus, IRQ_CARD_REMOVE)
		bits.Clear(&d.status, STAR_CARD_PRESENT)
	}

	d.updateIRQ()
}
