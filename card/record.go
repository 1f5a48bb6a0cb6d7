// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package card

import (
	"fmt"
	"sync"
)

// Record implements Bus while recording everything submitted or
// transferred, and replaying scripted responses and data bytes back to
// the caller. It is modeled on periph.io's conntest.Record /
// i2ctest.Record "record everything, script the replies" fake-bus shape.
type Record struct {
	mu sync.Mutex

	// Ops records every Submit call, in order.
	Ops []Request

	// Reads records every byte handed out via ReadByte, in order.
	Reads []byte

	// Writes records every byte accepted via WriteByte, in order.
	Writes []byte

	// Responses scripts the Response (or error) returned by successive
	// Submit calls, consumed in order. When exhausted, Submit returns
	// RespNone with no error.
	Responses []RecordResponse

	// ReadQueue is drained byte by byte by ReadByte. DataReady reports
	// true while it is non-empty; once it is empty, DataReady falls back
	// to the WriteCap rule below.
	ReadQueue []byte

	// WriteCap is the number of recorded Writes after which DataReady
	// reports false (when ReadQueue is also empty); zero means DataReady
	// never reports false on this account. WriteByte itself accepts every
	// byte regardless of WriteCap.
	WriteCap int

	// Inserted reflects whether a card is present; Submit returns
	// ErrNoCard when false.
	Inserted bool
}

// RecordResponse scripts one Submit() reply.
type RecordResponse struct {
	Response Response
	Err      error
}

// NewRecord returns a Record with a card present and no scripted
// responses (every Submit returns RespNone until Responses is set).
func NewRecord() *Record {
	return &Record{Inserted: true}
}

// Submit implements Bus.
func (r *Record) Submit(req Request) (Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Ops = append(r.Ops, req)

	if !r.Inserted {
		return Response{}, ErrNoCard
	}

	if len(r.Responses) == 0 {
		return Response{}, nil
	}

	next := r.Responses[0]
	r.Responses = r.Responses[1:]

	return next.Response, next.Err
}

// DataReady implements Bus.
func (r *Record) DataReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.Inserted {
		return false
	}

	if len(r.ReadQueue) > 0 {
		return true
	}

	if r.WriteCap == 0 || len(r.Writes) < r.WriteCap {
		return true
	}

	return false
}

// ReadByte implements Bus.
func (r *Record) ReadByte() (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ReadQueue) == 0 {
		return 0, fmt.Errorf("card: record: read queue exhausted")
	}

	b := r.ReadQueue[0]
	r.ReadQueue = r.ReadQueue[1:]
	r.Reads = append(r.Reads, b)

	return b, nil
}

// WriteByte implements Bus.
func (r *Record) WriteByte(b byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Writes = append(r.Writes, b)

	return nil
}
