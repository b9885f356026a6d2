package objects

import (
	"bytes"
	"testing"
)

func TestParseHexDigest(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
		wantErr  bool
	}{
		{"lowercase", "deadbeef", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"uppercase normalized", "DEADBEEF", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"surrounding whitespace", " deadbeef\n", []byte{0xde, 0xad, 0xbe, 0xef}, false},
		{"empty", "", nil, true},
		{"odd length", "abc", nil, true},
		{"non-hex", "zzzz", nil, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			digest, err := ParseHexDigest("sha-256", test.input)
			if test.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if !bytes.Equal(digest.Value, test.expected) {
				t.Errorf("expected %x, got %x", test.expected, digest.Value)
			}
			if digest.Algorithm != "sha-256" {
				t.Errorf("unexpected algorithm: %s", digest.Algorithm)
			}
		})
	}
}

func TestDigestEqual(t *testing.T) {
	a := NewDigest("sha-256", []byte{0x01, 0x02})
	b := NewDigest("sha-256", []byte{0x01, 0x02})
	c := NewDigest("md5", []byte{0x01, 0x02})
	d := NewDigest("sha-256", []byte{0x01, 0x03})

	if !a.Equal(b) {
		t.Error("expected equal digests")
	}
	if a.Equal(c) {
		t.Error("expected algorithm mismatch to differ")
	}
	if a.Equal(d) {
		t.Error("expected value mismatch to differ")
	}
	if a.String() != "0102" {
		t.Errorf("unexpected string form: %s", a.String())
	}
}

func TestNewDigestCopies(t *testing.T) {
	value := []byte{0x01, 0x02}
	digest := NewDigest("md5", value)
	value[0] = 0xff
	if digest.Value[0] != 0x01 {
		t.Error("digest shares backing array with caller")
	}
}
