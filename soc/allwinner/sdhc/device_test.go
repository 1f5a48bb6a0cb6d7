// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdhc

import (
	"testing"

	"github.com/usbarmory/sdhc-emu/bits"
	"github.com/usbarmory/sdhc-emu/card"
	"github.com/usbarmory/sdhc-emu/internal/guestmem"
)

func newTestDevice() (*Device, *card.Record, *guestmem.RAM) {
	bus := card.NewRecord()
	mem := guestmem.NewRAM(0, 0x10000)
	dev := New(bus, mem)
	return dev, bus, mem
}

// S1: PIO write of 4 bytes.
func TestScenarioPIOWrite(t *testing.T) {
	dev, bus, _ := newTestDevice()

	dev.WriteRegister(BKSR, 0x200)
	dev.WriteRegister(BYCR, 4)
	dev.WriteRegister(IMKR, 1<<IRQ_DATA_COMPLETE|1<<IRQ_AUTOCMD_DONE)
	dev.WriteRegister(GCTL, 1<<GCTL_INT_ENB)

	dev.WriteRegister(FIFO, 0xDEADBEEF)

	// Little-endian bytes of 0xDEADBEEF (spec.md §4.6: "four little-endian
	// bytes of value"; spec.md's S1 scenario text itself has this
	// transposed, a documented typo).
	want := []byte{0xEF, 0xBE, 0xAD, 0xDE}
	if len(bus.Writes) != 4 {
		t.Fatalf("Writes = %v, want 4 bytes", bus.Writes)
	}
	for i, b := range want {
		if bus.Writes[i] != b {
			t.Errorf("Writes[%d] = %#x, want %#x", i, bus.Writes[i], b)
		}
	}

	if got := dev.transferCnt; got != 0 {
		t.Errorf("transfer_cnt = %d, want 0", got)
	}

	irqStatus := dev.ReadRegister(RISR)
	if !bits.IsSet(&irqStatus, IRQ_DATA_COMPLETE) || !bits.IsSet(&irqStatus, IRQ_AUTOCMD_DONE) {
		t.Errorf("irq_status = %#x, want DATA_COMPLETE|AUTOCMD_DONE set", irqStatus)
	}

	if !dev.IRQLine() {
		t.Errorf("IRQ line deasserted, want asserted")
	}
}

// S2: command with a 4-byte response.
func TestScenarioShortResponse(t *testing.T) {
	dev, bus, _ := newTestDevice()

	bus.Responses = []card.RecordResponse{
		{Response: card.Response{Bytes: []byte{0x11, 0x22, 0x33, 0x44}}},
	}

	cmd := uint32(8) | 1<<CMDR_RESPONSE | 1<<CMDR_LOAD
	dev.WriteRegister(CMDR, cmd)

	if got := dev.response[0]; got != 0x11223344 {
		t.Errorf("response[0] = %#x, want 0x11223344", got)
	}
	for i := 1; i < 4; i++ {
		if dev.response[i] != 0 {
			t.Errorf("response[%d] = %#x, want 0", i, dev.response[i])
		}
	}

	irqStatus := dev.ReadRegister(RISR)
	if !bits.IsSet(&irqStatus, IRQ_CMD_COMPLETE) {
		t.Errorf("irq_status = %#x, want CMD_COMPLETE set", irqStatus)
	}

	if len(bus.Ops) != 1 || bus.Ops[0].Cmd != 8 {
		t.Errorf("Ops = %v, want one Submit of cmd 8", bus.Ops)
	}
}

// S3: command with a 16-byte response.
func TestScenarioLongResponse(t *testing.T) {
	dev, bus, _ := newTestDevice()

	resp := make([]byte, 16)
	for i := range resp {
		resp[i] = byte(i)
	}
	bus.Responses = []card.RecordResponse{
		{Response: card.Response{Bytes: resp}},
	}

	cmd := uint32(2) | 1<<CMDR_RESPONSE | 1<<CMDR_RESPONSE_LONG | 1<<CMDR_LOAD
	dev.WriteRegister(CMDR, cmd)

	want := [4]uint32{0x0C0D0E0F, 0x08090A0B, 0x04050607, 0x00010203}
	if dev.response != want {
		t.Errorf("response = %#x, want %#x", dev.response, want)
	}
}

// S4: DMA read across two descriptors.
func TestScenarioDMAReadTwoDescriptors(t *testing.T) {
	dev, bus, mem := newTestDevice()

	const descA = 0x1000
	const descB = 0x1020
	const bufG0 = 0x2000
	const bufG1 = 0x3000

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	bus.ReadQueue = append([]byte{}, data...)

	writeDesc(t, mem, descA, descriptor{Status: DescHOLD | DescFIRST, Size: 512, Addr: bufG0, Next: descB})
	writeDesc(t, mem, descB, descriptor{Status: DescHOLD | DescLAST, Size: 512, Addr: bufG1})

	dev.WriteRegister(GCTL, 1<<GCTL_DMA_ENB)
	dev.WriteRegister(BKSR, 512)
	dev.WriteRegister(BYCR, 1024)
	dev.WriteRegister(DLBA, descA)

	cmd := uint32(18) | 1<<CMDR_DATA | 1<<CMDR_LOAD
	dev.WriteRegister(CMDR, cmd)

	got0 := make([]byte, 512)
	if err := mem.ReadAt(bufG0, got0); err != nil {
		t.Fatalf("ReadAt G0: %v", err)
	}
	if string(got0) != string(data[0:512]) {
		t.Errorf("guest memory at G0 mismatch")
	}

	got1 := make([]byte, 512)
	if err := mem.ReadAt(bufG1, got1); err != nil {
		t.Fatalf("ReadAt G1: %v", err)
	}
	if string(got1) != string(data[512:1024]) {
		t.Errorf("guest memory at G1 mismatch")
	}

	da := readDesc(t, mem, descA)
	db := readDesc(t, mem, descB)
	if da.Status&DescHOLD != 0 || db.Status&DescHOLD != 0 {
		t.Errorf("HOLD bit not cleared: A=%#x B=%#x", da.Status, db.Status)
	}

	dmacStatus := dev.ReadRegister(IDST)
	if !bits.IsSet(&dmacStatus, IDST_SUM_RECEIVE_IRQ) || !bits.IsSet(&dmacStatus, IDST_RECEIVE_IRQ) {
		t.Errorf("dmac_status = %#x, want SUM_RECEIVE_IRQ|RECEIVE_IRQ", dmacStatus)
	}

	irqStatus := dev.ReadRegister(RISR)
	if !bits.IsSet(&irqStatus, IRQ_DATA_COMPLETE) || !bits.IsSet(&irqStatus, IRQ_AUTOCMD_DONE) {
		t.Errorf("irq_status = %#x, want DATA_COMPLETE|AUTOCMD_DONE", irqStatus)
	}
}

// S5: a size==0 descriptor denotes 64KiB, but byte_count bounds it.
func TestScenarioZeroSizeDescriptor(t *testing.T) {
	dev, bus, mem := newTestDevice()

	const desc = 0x1000
	const buf = 0x2000

	data := make([]byte, 2048)
	for i := range data {
		data[i] = byte(i % 256)
	}
	bus.ReadQueue = append([]byte{}, data...)

	writeDesc(t, mem, desc, descriptor{Status: DescHOLD | DescLAST, Size: 0, Addr: buf})

	dev.WriteRegister(GCTL, 1<<GCTL_DMA_ENB)
	dev.WriteRegister(BKSR, 512)
	dev.WriteRegister(BYCR, 2048)
	dev.WriteRegister(DLBA, desc)

	dev.WriteRegister(CMDR, uint32(18)|1<<CMDR_DATA|1<<CMDR_LOAD)

	if len(bus.Reads) != 2048 {
		t.Fatalf("card.Reads = %d bytes, want exactly 2048 (not 65536)", len(bus.Reads))
	}

	got := make([]byte, 2048)
	if err := mem.ReadAt(buf, got); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("guest memory mismatch")
	}
}

// S6: CLKCHANGE short-circuits command dispatch.
func TestScenarioClkChange(t *testing.T) {
	dev, bus, _ := newTestDevice()

	dev.WriteRegister(CMDR, 1<<CMDR_CLKCHANGE|1<<CMDR_LOAD)

	if len(bus.Ops) != 0 {
		t.Errorf("Ops = %v, want CBI.submit not called", bus.Ops)
	}

	irqStatus := dev.ReadRegister(RISR)
	if !bits.IsSet(&irqStatus, IRQ_CMD_COMPLETE) {
		t.Errorf("irq_status = %#x, want CMD_COMPLETE set", irqStatus)
	}

	cmd := dev.ReadRegister(CMDR)
	if bits.IsSet(&cmd, CMDR_LOAD) {
		t.Errorf("CMDR.LOAD still set on readback")
	}
}

// S7: card insertion and removal.
func TestScenarioCardInsertRemove(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.SetInserted(true)

	status := dev.ReadRegister(STAR)
	irqStatus := dev.ReadRegister(RISR)
	if !bits.IsSet(&status, STAR_CARD_PRESENT) {
		t.Errorf("status = %#x, want CARD_PRESENT set", status)
	}
	if !bits.IsSet(&irqStatus, IRQ_CARD_INSERT) {
		t.Errorf("irq_status = %#x, want CARD_INSERT set", irqStatus)
	}

	dev.SetInserted(false)

	status = dev.ReadRegister(STAR)
	irqStatus = dev.ReadRegister(RISR)
	if bits.IsSet(&status, STAR_CARD_PRESENT) {
		t.Errorf("status = %#x, want CARD_PRESENT clear", status)
	}
	if !bits.IsSet(&irqStatus, IRQ_CARD_REMOVE) {
		t.Errorf("irq_status = %#x, want CARD_REMOVE set", irqStatus)
	}
	if bits.IsSet(&irqStatus, IRQ_CARD_INSERT) {
		t.Errorf("irq_status = %#x, want CARD_INSERT clear", irqStatus)
	}
}

// Invariant 1: self-clearing GCTL bits never stick.
func TestInvariantGCTLSelfClearing(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.WriteRegister(GCTL, 1<<GCTL_SOFT_RST|1<<GCTL_FIFO_RST|1<<GCTL_DMA_RST|1<<GCTL_INT_ENB)

	got := dev.ReadRegister(GCTL)
	if got&gctlSelfClearMask != 0 {
		t.Errorf("GCTL = %#x, want reset bits clear", got)
	}
	if got&(1<<GCTL_INT_ENB) == 0 {
		t.Errorf("GCTL = %#x, want INT_ENB to survive", got)
	}
}

// Invariant 2: CMDR.LOAD always reads back as 0.
func TestInvariantLoadClearsOnReadback(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.WriteRegister(CMDR, 1<<CMDR_CLKCHANGE|1<<CMDR_LOAD)

	got := dev.ReadRegister(CMDR)
	if got&(1<<CMDR_LOAD) != 0 {
		t.Errorf("CMDR = %#x, want LOAD clear on readback", got)
	}
}

// Invariant 3: RISR/MISR/STAR follow the W1C law.
func TestInvariantW1C(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.WriteRegister(IMKR, 0xFFFFFFFF)
	dev.irqStatus = 0b1111
	dev.status = 0b1111

	dev.WriteRegister(RISR, 0b0101)
	if got := dev.irqStatus; got != 0b1010 {
		t.Errorf("irq_status after RISR W1C = %#b, want 0b1010", got)
	}

	dev.status = 0b1111
	dev.WriteRegister(STAR, 0b0011)
	if got := dev.status; got != 0b1100 {
		t.Errorf("status after STAR W1C = %#b, want 0b1100", got)
	}
}

// Invariant 4: IRQ line formula holds at every observable instant.
func TestInvariantIRQLineFormula(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.WriteRegister(IMKR, 1<<IRQ_CMD_COMPLETE)
	dev.WriteRegister(GCTL, 0)
	dev.irqStatus = 1 << IRQ_CMD_COMPLETE
	dev.updateIRQ()

	if dev.IRQLine() {
		t.Errorf("IRQ line asserted with INT_ENB clear, want deasserted")
	}

	dev.WriteRegister(GCTL, 1<<GCTL_INT_ENB)

	if !dev.IRQLine() {
		t.Errorf("IRQ line deasserted, want asserted once INT_ENB set with matching status/mask")
	}
}

// Invariant 5: transfer_cnt reaching zero implies DATA_COMPLETE|AUTOCMD_DONE.
func TestInvariantTransferCountZeroImpliesComplete(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.transferCnt = 4
	dev.updateTransferCount(4)

	if dev.transferCnt != 0 {
		t.Fatalf("transfer_cnt = %d, want 0", dev.transferCnt)
	}

	if dev.irqStatus&(1<<IRQ_DATA_COMPLETE|1<<IRQ_AUTOCMD_DONE) == 0 {
		t.Errorf("irq_status = %#x, want DATA_COMPLETE|AUTOCMD_DONE", dev.irqStatus)
	}
}

// Invariant 6: writing BYCR=N is reflected in transfer_cnt until a
// transfer advances it.
func TestInvariantBYCRSeedsTransferCount(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.WriteRegister(BYCR, 777)

	if dev.transferCnt != 777 {
		t.Errorf("transfer_cnt = %d, want 777", dev.transferCnt)
	}
}

// Invariant 7: snapshot/restore round-trips every register.
func TestInvariantSnapshotRoundTrip(t *testing.T) {
	dev, _, _ := newTestDevice()

	dev.WriteRegister(GCTL, 1<<GCTL_INT_ENB)
	dev.WriteRegister(IMKR, 0xFF)
	dev.WriteRegister(BYCR, 123)
	dev.WriteRegister(CAGR, 0xAABBCCDD)
	dev.irqStatus = 0x5

	snap, err := dev.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	before := *dev

	dev.Reset()
	if dev.globalCtl == before.globalCtl && dev.commandArg == before.commandArg && dev.byteCount == before.byteCount {
		t.Fatalf("Reset did not change state, test is vacuous")
	}

	if err := dev.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if dev.globalCtl != before.globalCtl ||
		dev.irqMask != before.irqMask ||
		dev.byteCount != before.byteCount ||
		dev.commandArg != before.commandArg ||
		dev.irqStatus != before.irqStatus {
		t.Errorf("Restore did not reproduce pre-snapshot state")
	}
}

func writeDesc(t *testing.T, mem *guestmem.RAM, addr uint32, d descriptor) {
	t.Helper()
	if err := mem.WriteAt(addr, d.encode()); err != nil {
		t.Fatalf("writeDesc(%#x): %v", addr, err)
	}
}

func readDesc(t *testing.T, mem *guestmem.RAM, addr uint32) descriptor {
	t.Helper()
	buf := make([]byte, descriptorSize)
	if err := mem.ReadAt(addr, buf); err != nil {
		t.Fatalf("readDesc(%#x): %v", addr, err)
	}
	return decodeDescriptor(buf)
}
