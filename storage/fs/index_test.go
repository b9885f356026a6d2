package fs

import (
	"bytes"
	"testing"

	"github.com/syndtr/goleveldb/leveldb/util"
)

func TestIncrementKey(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
		overflow bool
	}{
		{"simple", []byte{0x00, 0x01}, []byte{0x00, 0x02}, false},
		{"carry", []byte{0x00, 0xff}, []byte{0x01, 0x00}, false},
		{"carry chain", []byte{0x01, 0xff, 0xff}, []byte{0x02, 0x00, 0x00}, false},
		{"overflow", []byte{0xff, 0xff}, []byte{0x00, 0x00}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ret, overflow := incrementKey(test.input)
			if overflow != test.overflow {
				t.Errorf("expected overflow=%v, got %v", test.overflow, overflow)
			}
			if !bytes.Equal(ret, test.expected) {
				t.Errorf("expected %x, got %x", test.expected, ret)
			}
		})
	}
}

func TestIncrementKeyDoesNotMutate(t *testing.T) {
	input := []byte{0x00, 0xff}
	incrementKey(input)
	if !bytes.Equal(input, []byte{0x00, 0xff}) {
		t.Error("input mutated")
	}
}

func TestPrefixRange(t *testing.T) {
	rng, err := prefixRange("md5", []byte{0xab})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	lower := make([]byte, 16)
	lower[0] = 0xab
	if !bytes.Equal(rng.Start, mappingKey("md5", lower)) {
		t.Errorf("unexpected Start: %x", rng.Start)
	}

	upper := make([]byte, 16)
	upper[0] = 0xac
	if !bytes.Equal(rng.Limit, mappingKey("md5", upper)) {
		t.Errorf("unexpected Limit: %x", rng.Limit)
	}
}

func TestPrefixRangeOverflow(t *testing.T) {
	partial := bytes.Repeat([]byte{0xff}, 4)
	rng, err := prefixRange("md5", partial)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	// the upper bound cannot be incremented, the scan ends at the end of
	// the mapping instead
	if !bytes.Equal(rng.Limit, util.BytesPrefix(mappingPrefix("md5")).Limit) {
		t.Errorf("unexpected Limit: %x", rng.Limit)
	}
}

func TestPrefixRangeErrors(t *testing.T) {
	if _, err := prefixRange("whirlpool", nil); err == nil {
		t.Error("expected error for unknown algorithm")
	}
	if _, err := prefixRange("md5", make([]byte, 17)); err == nil {
		t.Error("expected error for over-long digest")
	}
}

func TestPrefixRangeBounds(t *testing.T) {
	rng := prefixRangeBounds("md5", nil, nil)
	if !bytes.Equal(rng.Start, mappingPrefix("md5")) {
		t.Errorf("unexpected unbounded Start: %x", rng.Start)
	}

	rng = prefixRangeBounds("md5", []byte{0x10}, []byte{0x20})
	if !bytes.Equal(rng.Start, mappingKey("md5", []byte{0x10})) {
		t.Errorf("unexpected Start: %x", rng.Start)
	}
	upper := make([]byte, 16)
	upper[0] = 0x20
	for i := 1; i < 16; i++ {
		upper[i] = 0xff
	}
	limit, _ := incrementKey(upper)
	if !bytes.Equal(rng.Limit, mappingKey("md5", limit)) {
		t.Errorf("unexpected Limit: %x", rng.Limit)
	}
}
