package main

import (
	"encoding/binary"
	"log"

	"github.com/usbarmory/sdhc-emu/card"
	"github.com/usbarmory/sdhc-emu/internal/guestmem"
	"github.com/usbarmory/sdhc-emu/soc/allwinner/sdhc"
)

type scenarioFunc func(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM)

var scenarios = map[string]scenarioFunc{
	"s1": scenarioPIOWrite,
	"s2": scenarioShortResponse,
	"s3": scenarioLongResponse,
	"s4": scenarioDMARead,
	"s5": scenarioZeroSizeDescriptor,
	"s6": scenarioClkChange,
	"s7": scenarioCardInsertRemove,
}

// descBytes encodes one 16-byte transfer descriptor (spec.md §3).
func descBytes(status, size, addr, next uint32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], status)
	binary.LittleEndian.PutUint32(buf[4:8], size)
	binary.LittleEndian.PutUint32(buf[8:12], addr)
	binary.LittleEndian.PutUint32(buf[12:16], next)
	return buf
}

func scenarioPIOWrite(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	dev.WriteRegister(sdhc.BKSR, 0x200)
	dev.WriteRegister(sdhc.BYCR, 4)
	dev.WriteRegister(sdhc.IMKR, 1<<sdhc.IRQ_DATA_COMPLETE|1<<sdhc.IRQ_AUTOCMD_DONE)
	dev.WriteRegister(sdhc.GCTL, 1<<sdhc.GCTL_INT_ENB)

	dev.WriteRegister(sdhc.FIFO, 0xDEADBEEF)

	log.Printf("s1: card bus saw writes %x, irq_status=%#x, IRQ=%v",
		bus.Writes, dev.ReadRegister(sdhc.RISR), dev.IRQLine())
}

func scenarioShortResponse(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	bus.Responses = []card.RecordResponse{
		{Response: card.Response{Bytes: []byte{0x11, 0x22, 0x33, 0x44}}},
	}

	cmd := uint32(8) | 1<<sdhc.CMDR_RESPONSE | 1<<sdhc.CMDR_LOAD
	dev.WriteRegister(sdhc.CMDR, cmd)

	log.Printf("s2: response[0]=%#x irq_status=%#x", dev.ReadRegister(sdhc.RESP0), dev.ReadRegister(sdhc.RISR))
}

func scenarioLongResponse(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	resp := make([]byte, 16)
	for i := range resp {
		resp[i] = byte(i)
	}
	bus.Responses = []card.RecordResponse{
		{Response: card.Response{Bytes: resp}},
	}

	cmd := uint32(2) | 1<<sdhc.CMDR_RESPONSE | 1<<sdhc.CMDR_RESPONSE_LONG | 1<<sdhc.CMDR_LOAD
	dev.WriteRegister(sdhc.CMDR, cmd)

	log.Printf("s3: response=[%#x %#x %#x %#x]",
		dev.ReadRegister(sdhc.RESP0), dev.ReadRegister(sdhc.RESP1),
		dev.ReadRegister(sdhc.RESP2), dev.ReadRegister(sdhc.RESP3))
}

func scenarioDMARead(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	const descA, descB = 0x1000, 0x1020
	const bufG0, bufG1 = 0x2000, 0x3000

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	bus.ReadQueue = append([]byte{}, data...)

	if err := mem.WriteAt(descA, descBytes(1<<31|1<<3, 512, bufG0, descB)); err != nil {
		log.Fatalf("s4: write descriptor A: %v", err)
	}
	if err := mem.WriteAt(descB, descBytes(1<<31|1<<2, 512, bufG1, 0)); err != nil {
		log.Fatalf("s4: write descriptor B: %v", err)
	}

	dev.WriteRegister(sdhc.GCTL, 1<<sdhc.GCTL_DMA_ENB)
	dev.WriteRegister(sdhc.BKSR, 512)
	dev.WriteRegister(sdhc.BYCR, 1024)
	dev.WriteRegister(sdhc.DLBA, descA)

	dev.WriteRegister(sdhc.CMDR, uint32(18)|1<<sdhc.CMDR_DATA|1<<sdhc.CMDR_LOAD)

	log.Printf("s4: dmac_status=%#x irq_status=%#x", dev.ReadRegister(sdhc.IDST), dev.ReadRegister(sdhc.RISR))
}

func scenarioZeroSizeDescriptor(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	const desc = 0x1000
	const buf = 0x2000

	data := make([]byte, 2048)
	bus.ReadQueue = append([]byte{}, data...)

	if err := mem.WriteAt(desc, descBytes(1<<31|1<<2, 0, buf, 0)); err != nil {
		log.Fatalf("s5: write descriptor: %v", err)
	}

	dev.WriteRegister(sdhc.GCTL, 1<<sdhc.GCTL_DMA_ENB)
	dev.WriteRegister(sdhc.BKSR, 512)
	dev.WriteRegister(sdhc.BYCR, 2048)
	dev.WriteRegister(sdhc.DLBA, desc)

	dev.WriteRegister(sdhc.CMDR, uint32(18)|1<<sdhc.CMDR_DATA|1<<sdhc.CMDR_LOAD)

	log.Printf("s5: card bus consumed %d bytes (want exactly 2048, not 65536)", len(bus.Reads))
}

func scenarioClkChange(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	dev.WriteRegister(sdhc.CMDR, 1<<sdhc.CMDR_CLKCHANGE|1<<sdhc.CMDR_LOAD)

	log.Printf("s6: card.Ops=%v irq_status=%#x", bus.Ops, dev.ReadRegister(sdhc.RISR))
}

func scenarioCardInsertRemove(dev *sdhc.Device, bus *card.Record, mem *guestmem.RAM) {
	dev.SetInserted(true)
	log.Printf("s7: inserted: status=%#x irq_status=%#x", dev.ReadRegister(sdhc.STAR), dev.ReadRegister(sdhc.RISR))

	dev.SetInserted(false)
	log.Printf("s7: removed: status=%#x irq_status=%#x", dev.ReadRegister(sdhc.STAR), dev.ReadRegister(sdhc.RISR))
}
