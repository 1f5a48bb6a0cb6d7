// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import (
	"encoding/binary"

	"github.com/usbarmory/sdhc-emu/bits"
	"github.com/usbarmory/sdhc-emu/card"
)

// dispatchCommand implements the Command Engine's response to a CMDR
// write with LOAD set (spec.md §4.4).
func (d *Device) dispatchCommand() {
	bits.Clear(&d.command, CMDR_LOAD)

	if bits.IsSet(&d.command, CMDR_CLKCHANGE) {
		bits.Set(&d.irqStatus, IRQ_CMD_COMPLETE)
		return
	}

	req := card.Request{
		Cmd: uint8(d.command & CMDR_CMD_INDEX_MASK),
		Arg: d.commandArg,
	}

	resp, err := d.Bus.Submit(req)

	if err != nil {
		bits.Set(&d.irqStatus, IRQ_NO_RESPONSE)
		return
	}

	if bits.IsSet(&d.command, CMDR_RESPONSE) {
		n := len(resp.Bytes)

		if n == 0 {
			bits.Set(&d.irqStatus, IRQ_NO_RESPONSE)
			return
		}

		long := bits.IsSet(&d.command, CMDR_RESPONSE_LONG)

		if (long && n != card.RespLong) || (!long && n != card.RespShort) {
			bits.Set(&d.irqStatus, IRQ_NO_RESPONSE)
			return
		}

		d.captureResponse(resp.Bytes, long)
	}

	bits.Set(&d.irqStatus, IRQ_CMD_COMPLETE)
}

// captureResponse stores a card response into the four response
// registers, converting each big-endian wire word into its
// little-endian storage form (spec.md §3, §4.4).
func (d *Device) captureResponse(b []byte, long bool) {
	if !long {
		d.response[0] = binary.BigEndian.Uint32(b[0:4])
		d.response[1] = 0
		d.response[2] = 0
		d.response[3] = 0
		return
	}

	d.response[0] = binary.BigEndian.Uint32(b[12:16])
	d.response[1] = binary.BigEndian.Uint32(b[8:12])
	d.response[2] = binary.BigEndian.Uint32(b[4:8])
	d.response[3] = binary.BigEndian.Uint32(b[0:4])
}

// autoStop injects a CMD12 STOP_TRANSMISSION after a multi-block
// transfer completes, when requested by the guest (spec.md §4.4). It
// re-enters dispatchCommand with command/command_arg mutated on the
// stack and restored afterward, never touching any shared lock — this
// device has none, per spec.md §5's reentrancy note.
func (d *Device) autoStop() {
	if !bits.IsSet(&d.command, CMDR_AUTOSTOP) || d.transferCnt != 0 {
		return
	}

	savedCommand := d.command
	savedArg := d.commandArg

	d.command = (d.command &^ CMDR_CMD_INDEX_MASK) | 12
	d.commandArg = 0

	d.dispatchCommand()

	d.command = savedCommand
	d.commandArg = savedArg
}
