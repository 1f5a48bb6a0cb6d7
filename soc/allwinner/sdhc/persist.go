// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// snapshotVersion guards against loading a snapshot taken from an
// incompatible build of this package.
const snapshotVersion = 1

// state is the CBOR wire form of a Device's register file (spec.md §3,
// Persistence View). Bus, Memory and IRQ are wiring, not state, and are
// left untouched by Snapshot/Restore: the caller re-attaches them across
// a save/load cycle the same way it constructed the Device originally.
type state struct {
	Version uint `cbor:"version"`

	GlobalCtl      uint32    `cbor:"global_ctl"`
	ClockCtl       uint32    `cbor:"clock_ctl"`
	Timeout        uint32    `cbor:"timeout"`
	BusWidth       uint32    `cbor:"bus_width"`
	BlockSize      uint32    `cbor:"block_size"`
	ByteCount      uint32    `cbor:"byte_count"`
	TransferCnt    uint32    `cbor:"transfer_cnt"`
	Command        uint32    `cbor:"command"`
	CommandArg     uint32    `cbor:"command_arg"`
	Response       [4]uint32 `cbor:"response"`
	IRQMask        uint32    `cbor:"irq_mask"`
	IRQStatus      uint32    `cbor:"irq_status"`
	Status         uint32    `cbor:"status"`
	FIFOWLevel     uint32    `cbor:"fifo_wlevel"`
	FIFOFuncSel    uint32    `cbor:"fifo_func_sel"`
	DebugEnable    uint32    `cbor:"debug_enable"`
	Auto12Arg      uint32    `cbor:"auto12_arg"`
	NewTimingSet   uint32    `cbor:"new_timing_set"`
	NewTimingDebug uint32    `cbor:"new_timing_debug"`
	HardwareRst    uint32    `cbor:"hardware_rst"`
	DMAC           uint32    `cbor:"dmac"`
	DescBase       uint32    `cbor:"desc_base"`
	DMACStatus     uint32    `cbor:"dmac_status"`
	DMACIRQ        uint32    `cbor:"dmac_irq"`
	CardThreshold  uint32    `cbor:"card_threshold"`
	StartbitDetect uint32    `cbor:"startbit_detect"`

	ResponseCRC uint32    `cbor:"response_crc"`
	DataCRC     [8]uint32 `cbor:"data_crc"`
	StatusCRC   uint32    `cbor:"status_crc"`

	IRQLine bool `cbor:"irq_line"`
}

// Snapshot encodes the Device's register file as CBOR, suitable for
// storage alongside a VM's own memory snapshot (spec.md §3, Persistence
// View). It does not invoke the IRQ hook: a restored snapshot is brought
// back to life by the caller calling Restore and then, if desired,
// reading IRQLine to learn the line's level at save time.
func (d *Device) Snapshot() ([]byte, error) {
	s := state{
		Version:        snapshotVersion,
		GlobalCtl:      d.globalCtl,
		ClockCtl:       d.clockCtl,
		Timeout:        d.timeout,
		BusWidth:       d.busWidth,
		BlockSize:      d.blockSize,
		ByteCount:      d.byteCount,
		TransferCnt:    d.transferCnt,
		Command:        d.command,
		CommandArg:     d.commandArg,
		Response:       d.response,
		IRQMask:        d.irqMask,
		IRQStatus:      d.irqStatus,
		Status:         d.status,
		FIFOWLevel:     d.fifoWLevel,
		FIFOFuncSel:    d.fifoFuncSel,
		DebugEnable:    d.debugEnable,
		Auto12Arg:      d.auto12Arg,
		NewTimingSet:   d.newtimingSet,
		NewTimingDebug: d.newtimingDebug,
		HardwareRst:    d.hardwareRst,
		DMAC:           d.dmac,
		DescBase:       d.descBase,
		DMACStatus:     d.dmacStatus,
		DMACIRQ:        d.dmacIRQ,
		CardThreshold:  d.cardThreshold,
		StartbitDetect: d.startbitDetect,
		ResponseCRC:    d.responseCRC,
		DataCRC:        d.dataCRC,
		StatusCRC:      d.statusCRC,
		IRQLine:        d.irqLine,
	}

	return cbor.Marshal(s)
}

// Restore replaces the Device's register file with the contents of a
// snapshot produced by Snapshot. Bus, Memory and IRQ are left as they
// were before the call.
func (d *Device) Restore(snapshot []byte) error {
	var s state

	if err := cbor.Unmarshal(snapshot, &s); err != nil {
		return fmt.Errorf("sdhc: decode snapshot: %w", err)
	}

	if s.Version != snapshotVersion {
		return fmt.Errorf("sdhc: snapshot version %d unsupported (want %d)", s.Version, snapshotVersion)
	}

	d.globalCtl = s.GlobalCtl
	d.clockCtl = s.ClockCtl
	d.timeout = s.Timeout
	d.busWidth = s.BusWidth
	d.blockSize = s.BlockSize
	d.byteCount = s.ByteCount
	d.transferCnt = s.TransferCnt
	d.command = s.Command
	d.commandArg = s.CommandArg
	d.response = s.Response
	d.irqMask = s.IRQMask
	d.irqStatus = s.IRQStatus
	d.status = s.Status
	d.fifoWLevel = s.FIFOWLevel
	d.fifoFuncSel = s.FIFOFuncSel
	d.debugEnable = s.DebugEnable
	d.auto12Arg = s.Auto12Arg
	d.newtimingSet = s.NewTimingSet
	d.newtimingDebug = s.NewTimingDebug
	d.hardwareRst = s.HardwareRst
	d.dmac = s.DMAC
	d.descBase = s.DescBase
	d.dmacStatus = s.DMACStatus
	d.dmacIRQ = s.DMACIRQ
	d.cardThreshold = s.CardThreshold
	d.startbitDetect = s.StartbitDetect
	d.responseCRC = s.ResponseCRC
	d.dataCRC = s.DataCRC
	d.statusCRC = s.StatusCRC
	d.irqLine = s.IRQLine

	return nil
}
