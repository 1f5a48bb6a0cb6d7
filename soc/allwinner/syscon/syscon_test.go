package syscon

import "testing"

func TestVERWriteIgnored(t *testing.T) {
	s := New()

	before := s.Read(VER)

	s.Write(VER, 0xffffffff)

	if got := s.Read(VER); got != before {
		t.Fatalf("VER = %#x after write, want unchanged %#x", got, before)
	}
}

func TestTrivialStore(t *testing.T) {
	s := New()

	s.Write(EMAC_EPHY_CLK, 0x12345678)

	if got := s.Read(EMAC_EPHY_CLK); got != 0x12345678 {
		t.Fatalf("EMAC_EPHY_CLK = %#x, want 0x12345678", got)
	}
}

func TestUnknownOffsetLogged(t *testing.T) {
	s := New()

	if got := s.Read(0xfff0); got != 0 {
		t.Fatalf("Read(unknown) = %#x, want 0", got)
	}
}
