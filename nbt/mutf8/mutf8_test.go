package mutf8

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"hello world",
		"Bananrama",
		"\x00null byte\x00",
		"emoji \U0001F600 supplementary",
		"\U0010FFFF",
	}
	for _, s := range cases {
		enc := Encode(s)
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%q): %v", s, err)
		}
		if got != s {
			t.Errorf("round trip %q -> %x -> %q", s, enc, got)
		}
	}
}

func TestNulEncodedAsTwoBytes(t *testing.T) {
	enc := Encode("\x00")
	if len(enc) != 2 || enc[0] != 0xC0 || enc[1] != 0x80 {
		t.Fatalf("Encode(NUL) = % x, want C0 80", enc)
	}
}

func TestSupplementaryAsSurrogatePair(t *testing.T) {
	enc := Encode("\U0001F600")
	// Two 3-byte sequences for the surrogate pair, not one 4-byte UTF-8
	// sequence.
	if len(enc) != 6 {
		t.Fatalf("Encode(supplementary) len = %d, want 6 (two 3-byte surrogate halves)", len(enc))
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode([]byte{0xFF}); err == nil {
		t.Fatal("expected error decoding invalid leading byte")
	}
	if _, err := Decode([]byte{0xC0}); err == nil {
		t.Fatal("expected error decoding truncated 2-byte sequence")
	}
}

func TestTransformerRoundTrip(t *testing.T) {
	s := "hello \x00 \U0001F600 world"
	enc := NewEncoder()
	dst := make([]byte, 64)
	nDst, nSrc, err := enc.Transform(dst, []byte(s), true)
	if err != nil {
		t.Fatalf("encoder.Transform: %v", err)
	}
	if nSrc != len(s) {
		t.Fatalf("encoder consumed %d of %d bytes", nSrc, len(s))
	}

	dec := NewDecoder()
	dst2 := make([]byte, 64)
	nDst2, nSrc2, err := dec.Transform(dst2, dst[:nDst], true)
	if err != nil {
		t.Fatalf("decoder.Transform: %v", err)
	}
	if nSrc2 != nDst {
		t.Fatalf("decoder consumed %d of %d bytes", nSrc2, nDst)
	}
	if got := string(dst2[:nDst2]); got != s {
		t.Fatalf("transformer round trip = %q, want %q", got, s)
	}
}
