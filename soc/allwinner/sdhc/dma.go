// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import "github.com/usbarmory/sdhc-emu/bits"

// chunkSize bounds the intermediate buffer used to move one slice of a
// descriptor's segment, keeping per-transfer memory bounded while still
// amortizing the per-descriptor guest-memory fetch cost (spec.md §4.5).
const chunkSize = 1024

// MaxDescriptorChain caps the number of descriptors walked for a single
// CMDR-triggered DMA run, guarding against a malformed chain that never
// sets LAST (spec.md §9 open question: "unbounded descriptor chains").
// byte_count depletion alone ends the walk, since every descriptor moves
// at least one byte, but a large byte_count spread over tiny descriptors
// can still mean billions of descriptor fetches; this cap is the
// documented safety net for that case.
const MaxDescriptorChain = 4096

// runDMA walks the guest-memory-resident descriptor chain rooted at
// desc_base, moving bytes between guest memory and the card bus
// (spec.md §4.5). It is a no-op unless the entry conditions are met.
func (d *Device) runDMA() {
	if d.byteCount == 0 || d.blockSize == 0 || !bits.IsSet(&d.globalCtl, GCTL_DMA_ENB) {
		return
	}

	isWrite := bits.IsSet(&d.command, CMDR_WRITE)

	if !isWrite && !d.Bus.DataReady() {
		return
	}

	descAddr := d.descBase
	remaining := d.byteCount

	for i := 0; remaining > 0; i++ {
		if i >= MaxDescriptorChain {
			d.log.Guest(descAddr, "dma: descriptor chain exceeds %d entries, aborting walk", MaxDescriptorChain)
			return
		}

		buf := make([]byte, descriptorSize)

		if err := d.Memory.ReadAt(descAddr, buf); err != nil {
			d.log.Guest(descAddr, "dma: failed to read descriptor at %#x: %v", descAddr, err)
			return
		}

		desc := decodeDescriptor(buf)

		seg := desc.segment()
		if seg > remaining {
			seg = remaining
		}

		if err := d.transferSegment(desc, seg, isWrite); err != nil {
			d.log.Guest(descAddr, "dma: segment transfer at %#x failed: %v", descAddr, err)
			return
		}

		d.updateTransferCount(seg)
		remaining -= seg

		desc.Status &^= DescHOLD

		if err := d.Memory.WriteAt(descAddr, desc.encode()); err != nil {
			d.log.Guest(descAddr, "dma: failed to write back descriptor at %#x: %v", descAddr, err)
			return
		}

		if desc.Status&DescLAST != 0 {
			break
		}

		descAddr = desc.Next
	}

	d.byteCount = remaining

	bits.Set(&d.irqStatus, IRQ_DATA_COMPLETE)
	bits.Set(&d.irqStatus, IRQ_AUTOCMD_DONE)

	if isWrite {
		bits.Set(&d.dmacStatus, IDST_TRANSMIT_IRQ)
	} else {
		bits.Set(&d.dmacStatus, IDST_RECEIVE_IRQ)
		bits.Set(&d.dmacStatus, IDST_SUM_RECEIVE_IRQ)
	}
}

// transferSegment moves seg bytes between guest memory at desc's buffer
// address and the card bus, chunkSize bytes at a time.
func (d *Device) transferSegment(desc descriptor, seg uint32, isWrite bool) error {
	var done uint32

	for done < seg {
		chunk := seg - done
		if chunk > chunkSize {
			chunk = chunkSize
		}

		bufAddr := desc.bufferAddr() + done

		if isWrite {
			buf := make([]byte, chunk)

			if err := d.Memory.ReadAt(bufAddr, buf); err != nil {
				return err
			}

			for _, b := range buf {
				if err := d.Bus.WriteByte(b); err != nil {
					return err
				}
			}
		} else {
			buf := make([]byte, chunk)

			for i := range buf {
				b, err := d.Bus.ReadByte()
				if err != nil {
					return err
				}

				buf[i] = b
			}

			if err := d.Memory.WriteAt(bufAddr, buf); err != nil {
				return err
			}
		}

		done += chunk
	}

	return nil
}
