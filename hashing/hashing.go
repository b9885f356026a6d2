package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"sort"
)

// bufferSize is the read-loop granularity of a DigestSet pass.
const bufferSize = 8192

func DefaultAlgorithms() []string {
	return []string{"md5", "sha-256"}
}

func DefaultPrimary() string {
	return "sha-256"
}

func GetHasher(name string) hash.Hash {
	switch name {
	case "md5":
		return md5.New()
	case "sha-1":
		return sha1.New()
	case "sha-256":
		return sha256.New()
	case "sha-384":
		return sha512.New384()
	case "sha-512":
		return sha512.New()
	default:
		return nil
	}
}

func Size(name string) int {
	switch name {
	case "md5":
		return md5.Size
	case "sha-1":
		return sha1.Size
	case "sha-256":
		return sha256.Size
	case "sha-384":
		return sha512.Size384
	case "sha-512":
		return sha512.Size
	default:
		return 0
	}
}

func Exists(name string) bool {
	return Size(name) != 0
}

// ValidateAlgorithms checks an algorithm set and returns it sorted and
// deduplicated, with primary guaranteed to be a member.
func ValidateAlgorithms(algorithms []string, primary string) ([]string, error) {
	if len(algorithms) == 0 {
		return nil, fmt.Errorf("empty algorithm set")
	}
	seen := make(map[string]bool)
	ret := make([]string, 0, len(algorithms))
	for _, algorithm := range algorithms {
		if !Exists(algorithm) {
			return nil, fmt.Errorf("unknown algorithm: %s", algorithm)
		}
		if seen[algorithm] {
			continue
		}
		seen[algorithm] = true
		ret = append(ret, algorithm)
	}
	if !seen[primary] {
		return nil, fmt.Errorf("primary algorithm %s not in algorithm set", primary)
	}
	sort.Strings(ret)
	return ret, nil
}

// DigestSet computes every configured algorithm over a byte stream in a
// single pass while copying the stream verbatim to a staging writer.
type DigestSet struct {
	algorithms []string
	hashers    []hash.Hash
}

func NewDigestSet(algorithms []string) (*DigestSet, error) {
	ds := &DigestSet{}
	for _, algorithm := range algorithms {
		hasher := GetHasher(algorithm)
		if hasher == nil {
			return nil, fmt.Errorf("unknown algorithm: %s", algorithm)
		}
		ds.algorithms = append(ds.algorithms, algorithm)
		ds.hashers = append(ds.hashers, hasher)
	}
	return ds, nil
}

// Consume reads rd to EOF, feeding every hasher and staging. Returns the
// number of bytes consumed. The content is never held in memory beyond
// the read buffer.
func (ds *DigestSet) Consume(rd io.Reader, staging io.Writer) (int64, error) {
	writers := make([]io.Writer, 0, len(ds.hashers)+1)
	for _, hasher := range ds.hashers {
		writers = append(writers, hasher)
	}
	if staging != nil {
		writers = append(writers, staging)
	}
	buffer := make([]byte, bufferSize)
	return io.CopyBuffer(io.MultiWriter(writers...), rd, buffer)
}

// Sums returns the digest of each algorithm over everything consumed so
// far.
func (ds *DigestSet) Sums() map[string][]byte {
	ret := make(map[string][]byte)
	for i, algorithm := range ds.algorithms {
		ret[algorithm] = ds.hashers[i].Sum(nil)
	}
	return ret
}
