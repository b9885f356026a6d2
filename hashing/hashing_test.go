package hashing

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	algorithms := DefaultAlgorithms()
	if len(algorithms) != 2 || algorithms[0] != "md5" || algorithms[1] != "sha-256" {
		t.Errorf("unexpected default algorithms: %v", algorithms)
	}
	if DefaultPrimary() != "sha-256" {
		t.Errorf("unexpected default primary: %s", DefaultPrimary())
	}
}

func TestGetHasher(t *testing.T) {
	for _, name := range []string{"md5", "sha-1", "sha-256", "sha-384", "sha-512"} {
		hasher := GetHasher(name)
		if hasher == nil {
			t.Errorf("expected %s hasher, but got nil", name)
			continue
		}
		if hasher.Size() != Size(name) {
			t.Errorf("%s: hasher size %d does not match Size() %d", name, hasher.Size(), Size(name))
		}
	}

	if GetHasher("unknown") != nil {
		t.Error("expected nil for unknown algorithm, but got non-nil")
	}
	if Size("unknown") != 0 {
		t.Error("expected zero size for unknown algorithm")
	}
	if Exists("unknown") {
		t.Error("expected unknown algorithm to not exist")
	}
}

func TestValidateAlgorithms(t *testing.T) {
	tests := []struct {
		name       string
		algorithms []string
		primary    string
		expected   []string
		wantErr    bool
	}{
		{"sorted", []string{"sha-256", "md5"}, "md5", []string{"md5", "sha-256"}, false},
		{"deduplicated", []string{"md5", "md5", "sha-256"}, "sha-256", []string{"md5", "sha-256"}, false},
		{"empty set", nil, "sha-256", nil, true},
		{"unknown member", []string{"md5", "crc32"}, "md5", nil, true},
		{"primary not member", []string{"md5"}, "sha-256", nil, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ret, err := ValidateAlgorithms(test.algorithms, test.primary)
			if test.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if len(ret) != len(test.expected) {
				t.Fatalf("expected %v, got %v", test.expected, ret)
			}
			for i := range ret {
				if ret[i] != test.expected[i] {
					t.Fatalf("expected %v, got %v", test.expected, ret)
				}
			}
		})
	}
}

func TestDigestSet(t *testing.T) {
	ds, err := NewDigestSet([]string{"md5", "sha-256"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	staging := &bytes.Buffer{}
	n, err := ds.Consume(strings.NewReader("hello world"), staging)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != 11 {
		t.Errorf("expected 11 bytes consumed, got %d", n)
	}
	if staging.String() != "hello world" {
		t.Errorf("staging does not match input: %q", staging.String())
	}

	sums := ds.Sums()
	if hex.EncodeToString(sums["md5"]) != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("unexpected md5: %x", sums["md5"])
	}
	if hex.EncodeToString(sums["sha-256"]) != "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9" {
		t.Errorf("unexpected sha-256: %x", sums["sha-256"])
	}
}

func TestDigestSetEmptyInput(t *testing.T) {
	ds, err := NewDigestSet([]string{"md5", "sha-256"})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	n, err := ds.Consume(strings.NewReader(""), nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if n != 0 {
		t.Errorf("expected 0 bytes consumed, got %d", n)
	}

	sums := ds.Sums()
	if hex.EncodeToString(sums["md5"]) != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("unexpected empty md5: %x", sums["md5"])
	}
	if hex.EncodeToString(sums["sha-256"]) != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected empty sha-256: %x", sums["sha-256"])
	}
}

func TestDigestSetUnknownAlgorithm(t *testing.T) {
	if _, err := NewDigestSet([]string{"md5", "whirlpool"}); err == nil {
		t.Fatal("expected error for unknown algorithm, got nil")
	}
}
