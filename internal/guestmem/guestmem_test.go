package guestmem

import (
	"bytes"
	"testing"
)

func TestRAMReadWriteRoundTrip(t *testing.T) {
	m := NewRAM(0x4000_0000, 4096)

	want := []byte{0xde, 0xad, 0xbe, 0xef}

	if err := m.WriteAt(0x4000_0010, want); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	got := make([]byte, len(want))

	if err := m.ReadAt(0x4000_0010, got); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("ReadAt() = %x, want %x", got, want)
	}
}

func TestRAMOutOfRange(t *testing.T) {
	m := NewRAM(0x1000, 16)

	if err := m.ReadAt(0x1000, make([]byte, 17)); err == nil {
		t.Fatalf("expected out of range error")
	}

	if err := m.WriteAt(0x0f00, make([]byte, 4)); err == nil {
		t.Fatalf("expected out of range error for address below base")
	}
}
