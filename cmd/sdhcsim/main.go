// sdhcsim drives an in-process Allwinner H3 SD/MMC host controller
// emulation core against a scripted fake card, for manual exercise of
// the register, command, PIO, and DMA paths without a full VM.
//
// Usage:
//
//	sdhcsim -scenario s4
//	sdhcsim -scenario all -debug-addr localhost:6969
//	sdhcsim -scenario s1 -save state.cbor
//	sdhcsim -load state.cbor -scenario s1
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	_ "github.com/mkevac/debugcharts"

	"github.com/usbarmory/sdhc-emu/card"
	"github.com/usbarmory/sdhc-emu/internal/guestmem"
	"github.com/usbarmory/sdhc-emu/soc/allwinner/sdhc"
)

func main() {
	log.SetFlags(0)

	var (
		scenario  = flag.String("scenario", "s1", "scenario to run: s1..s7 or all")
		debugAddr = flag.String("debug-addr", "", "if set, serve mkevac/debugcharts on this address")
		loadPath  = flag.String("load", "", "load device state from a CBOR snapshot before running")
		savePath  = flag.String("save", "", "save device state to a CBOR snapshot after running")
	)
	flag.Parse()

	if *debugAddr != "" {
		go func() {
			log.Printf("sdhcsim: serving debug charts on http://%s/debug/charts/", *debugAddr)
			if err := http.ListenAndServe(*debugAddr, nil); err != nil {
				log.Printf("sdhcsim: debug server: %v", err)
			}
		}()
	}

	bus := card.NewRecord()
	mem := guestmem.NewRAM(0, 1<<20)
	dev := sdhc.New(bus, mem)

	dev.IRQ = func(asserted bool) {
		log.Printf("sdhcsim: IRQ line -> %v", asserted)
	}

	if *loadPath != "" {
		snap, err := os.ReadFile(*loadPath)
		if err != nil {
			log.Fatalf("sdhcsim: read snapshot: %v", err)
		}
		if err := dev.Restore(snap); err != nil {
			log.Fatalf("sdhcsim: restore snapshot: %v", err)
		}
		log.Printf("sdhcsim: restored state from %s", *loadPath)
	}

	names := []string{*scenario}
	if *scenario == "all" {
		names = []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}
	}

	for _, name := range names {
		run, ok := scenarios[name]
		if !ok {
			log.Fatalf("sdhcsim: unknown scenario %q", name)
		}

		log.Printf("sdhcsim: running %s", name)
		run(dev, bus, mem)
	}

	if *savePath != "" {
		snap, err := dev.Snapshot()
		if err != nil {
			log.Fatalf("sdhcsim: snapshot: %v", err)
		}
		if err := os.WriteFile(*savePath, snap, 0644); err != nil {
			log.Fatalf("sdhcsim: write snapshot: %v", err)
		}
		log.Printf("sdhcsim: saved state to %s", *savePath)
	}

	fmt.Println("sdhcsim: done")
}
