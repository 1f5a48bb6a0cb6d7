// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import "github.com/usbarmory/sdhc-emu/bits"

// updateTransferCount performs a saturating subtract of n bytes from
// transfer_cnt, raising DATA_COMPLETE and AUTOCMD_DONE when the residual
// count reaches zero (spec.md §4.3). Called once per 4-byte PIO
// transfer and once per descriptor segment moved by the DMA engine.
func (d *Device) updateTransferCount(n uint32) {
	if n >= d.transferCnt {
		d.transferCnt = 0
	} else {
		d.transferCnt -= n
	}

	if d.transferCnt == 0 {
		bits.Set(&d.irqStatus, IRQ_DATA_COMPLETE)
		bits.Set(&d.irqStatus, IRQ_AUTOCMD_DONE)
	}
}
