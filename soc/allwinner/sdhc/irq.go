// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import "github.com/usbarmory/sdhc-emu/bits"

// updateIRQ recomputes the outgoing IRQ line from raw status, mask, and
// the global enable bit (spec.md §4.2), invoking the IRQ hook only when
// the line's level actually changes.
//
//	line = (GCTL & INT_ENB) ? (irq_status & irq_mask) : 0
func (d *Device) updateIRQ() {
	var line bool

	if bits.IsSet(&d.globalCtl, GCTL_INT_ENB) {
		line = d.irqStatus&d.irqMask != 0
	}

	if line == d.irqLine {
		return
	}

	d.irqLine = line

	if d.IRQ != nil {
		d.IRQ(line)
	}
}

// IRQLine reports the current level of the aggregated interrupt line.
func (d *Device) IRQLine() bool {
	return d.irqLine
}
