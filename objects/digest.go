package objects

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Digest is the value of one digest algorithm over an object's content.
// Digests are immutable; equality is byte-exact.
type Digest struct {
	Algorithm string `msgpack:"algorithm" json:"algorithm"`
	Value     []byte `msgpack:"value" json:"value"`
}

func NewDigest(algorithm string, value []byte) Digest {
	dup := make([]byte, len(value))
	copy(dup, value)
	return Digest{Algorithm: algorithm, Value: dup}
}

func (d Digest) String() string {
	return hex.EncodeToString(d.Value)
}

func (d Digest) Equal(other Digest) bool {
	if d.Algorithm != other.Algorithm {
		return false
	}
	if len(d.Value) != len(other.Value) {
		return false
	}
	for i := range d.Value {
		if d.Value[i] != other.Value[i] {
			return false
		}
	}
	return true
}

// ParseHexDigest normalizes a caller-supplied hexadecimal digest to its
// binary form. Input case is irrelevant; the decoded bytes are canonical.
// A short input decodes to a short value, which downstream layers treat
// as a partial digest.
func ParseHexDigest(algorithm string, text string) (Digest, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) == 0 {
		return Digest{}, fmt.Errorf("empty digest")
	}
	if len(text)%2 != 0 {
		return Digest{}, fmt.Errorf("odd-length digest: %s", text)
	}
	value, err := hex.DecodeString(text)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest %s: %w", text, err)
	}
	return Digest{Algorithm: algorithm, Value: value}, nil
}
