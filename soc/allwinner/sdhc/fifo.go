// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

// fifoRead implements a guest read of the FIFO data port: one 4-byte
// little-endian word pulled from the card bus (spec.md §4.6). A read
// attempted with no data ready is a guest programming error: it is
// logged and returns zero without touching transfer_cnt.
func (d *Device) fifoRead() uint32 {
	if !d.Bus.DataReady() {
		d.log.Guest(FIFO, "fifo read with no data ready")
		return 0
	}

	var buf [4]byte

	for i := range buf {
		b, err := d.Bus.ReadByte()
		if err != nil {
			d.log.Guest(FIFO, "fifo read: %v", err)
			return 0
		}

		buf[i] = b
	}

	val := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24

	d.updateTransferCount(4)
	d.autoStop()
	d.updateIRQ()

	return val
}

// fifoWrite implements a guest write of the FIFO data port: one 4-byte
// little-endian word pushed onto the card bus (spec.md §4.6).
func (d *Device) fifoWrite(val uint32) {
	buf := [4]byte{
		byte(val),
		byte(val >> 8),
		byte(val >> 16),
		byte(val >> 24),
	}

	for _, b := range buf {
		if err := d.Bus.WriteByte(b); err != nil {
			d.log.Guest(FIFO, "fifo write: %v", err)
			return
		}
	}

	d.updateTransferCount(4)
	d.autoStop()
	d.updateIRQ()
}
