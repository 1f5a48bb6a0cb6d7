// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package card defines the narrow interface the SDHC emulation core
// consumes from an abstract SD/MMC bus and card (CBI, §6): command
// submission, byte-stream PIO/DMA access, and data-ready polling.
package card

import "errors"

// Response byte lengths a Bus may return from Submit.
const (
	RespNone  = 0
	RespShort = 4
	RespLong  = 16
)

// ErrNoCard is returned by a Bus when a command is submitted with no card
// present on the bus.
var ErrNoCard = errors.New("card: no card present")

// Request is a single SD/MMC command issued to the bus.
type Request struct {
	// Cmd is the 6-bit command index (CMDR.CMD_INDEX, GO_IDLE_STATE=0
	// through STOP_TRANSMISSION=12 and beyond).
	Cmd uint8
	// Arg is the 32-bit command argument.
	Arg uint32
}

// Response carries the raw bytes returned by a card for a command, with
// length 0 (no response), 4 (short), or 16 (long/R2).
type Response struct {
	Bytes []byte
}

// Bus is the abstract SD/MMC bus the command engine and DMA walker drive.
// All methods are synchronous: there is no asynchronous completion in
// this model, consistent with the single-threaded, no-suspension-point
// concurrency model of the surrounding device (spec §5).
type Bus interface {
	// Submit dispatches a command to the card and returns its response,
	// or an error if the card failed to answer (mapped by the caller to
	// NO_RESPONSE).
	Submit(req Request) (Response, error)

	// DataReady reports whether the card currently has a byte available
	// to read (PIO/DMA read direction) or is ready to accept a write
	// (PIO/DMA write direction). The emulation core never attempts to
	// disambiguate direction here: direction is tracked independently
	// via the WRITE bit of the command register.
	DataReady() bool

	// ReadByte returns the next byte of card data.
	ReadByte() (byte, error)

	// WriteByte pushes one byte of data to the card.
	WriteByte(b byte) error
}
