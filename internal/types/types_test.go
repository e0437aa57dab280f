package types

import "testing"

// TestDeriveImageID tests determinism and sensitivity of derivation.
func TestDeriveImageID(t *testing.T) {
	words := []uint32{0xD2800540, 0x14000000}

	a := DeriveImageID(0x1000, words)
	b := DeriveImageID(0x1000, words)
	if !a.Equals(b) {
		t.Error("DeriveImageID() is not deterministic")
	}
	if a.IsZero() {
		t.Error("DeriveImageID() = zero ID")
	}

	if c := DeriveImageID(0x2000, words); a.Equals(c) {
		t.Error("base address does not affect the ID")
	}
	if d := DeriveImageID(0x1000, []uint32{0xD2800540}); a.Equals(d) {
		t.Error("word count does not affect the ID")
	}
}

// TestImageIDBase58RoundTrip tests the text encoding.
func TestImageIDBase58RoundTrip(t *testing.T) {
	id := DeriveImageID(0, []uint32{1, 2, 3})

	parsed, err := ImageIDFromBase58(id.String())
	if err != nil {
		t.Fatalf("ImageIDFromBase58() failed: %v", err)
	}
	if !parsed.Equals(id) {
		t.Errorf("round trip = %s, want %s", parsed, id)
	}

	if _, err := ImageIDFromBase58("tooshort"); err == nil {
		t.Error("ImageIDFromBase58(short) succeeded, want error")
	}
}

// TestImageIDTextMarshal tests the TextMarshaler pair.
func TestImageIDTextMarshal(t *testing.T) {
	id := DeriveImageID(7, []uint32{9})

	text, err := id.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() failed: %v", err)
	}

	var back ImageID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() failed: %v", err)
	}
	if !back.Equals(id) {
		t.Errorf("round trip = %s, want %s", back, id)
	}
}
