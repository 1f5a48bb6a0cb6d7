// https://github.com/usbarmory/tamago
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package ratelog logs guest misuse events (bad offsets, bad access
// sizes, protocol violations) without ever letting a misbehaving or
// malicious guest flood the host log, per a single named channel.
package ratelog

import (
	"log"
	"sync"

	"golang.org/x/time/rate"
)

// Logger rate-limits log lines independently per key (typically an MMIO
// register offset), so one noisy offset cannot starve log visibility for
// another.
type Logger struct {
	mu       sync.Mutex
	limiters map[uint32]*rate.Limiter

	// Limit and Burst configure every per-key limiter created on demand.
	// Zero values fall back to one event every 200ms with a burst of 1.
	Limit rate.Limit
	Burst int
}

const (
	defaultLimit = rate.Limit(5) // one event per 200ms
	defaultBurst = 1
)

// New returns a Logger using the default rate (5Hz, burst 1).
func New() *Logger {
	return &Logger{
		limiters: make(map[uint32]*rate.Limiter),
		Limit:    defaultLimit,
		Burst:    defaultBurst,
	}
}

func (l *Logger) limiterFor(key uint32) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		limit := l.Limit
		if limit == 0 {
			limit = defaultLimit
		}

		burst := l.Burst
		if burst == 0 {
			burst = defaultBurst
		}

		lim = rate.NewLimiter(limit, burst)
		l.limiters[key] = lim
	}

	return lim
}

// Guest logs a guest-misuse event keyed by key (an MMIO offset, a command
// index, or any other small integer identifying the offending channel).
// Calls beyond the configured rate are silently dropped.
func (l *Logger) Guest(key uint32, format string, args ...interface{}) {
	if !l.limiterFor(key).Allow() {
		return
	}

	log.Printf("sdhc: guest error: "+format, args...)
}
