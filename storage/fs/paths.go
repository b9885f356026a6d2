package fs

import (
	"encoding/base32"
	"path/filepath"
)

// pathEncoding is the textual radix used for content paths: fixed-width,
// case-normalized, byte-lexically sortable.
var pathEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const shardWidth = 4
const shardDepth = 3

func (repository *Repository) PathStore() string {
	return filepath.Join(repository.root, "store")
}

func (repository *Repository) PathTmp() string {
	return filepath.Join(repository.root, "tmp")
}

func (repository *Repository) PathIndex() string {
	return filepath.Join(repository.root, "index")
}

// PathObject maps a primary digest to its content file: the base32
// encoding of the digest split into fixed-width directory segments to
// bound per-directory fan-out.
func (repository *Repository) PathObject(digest []byte) string {
	encoded := pathEncoding.EncodeToString(digest)

	segments := make([]string, 0, shardDepth+2)
	segments = append(segments, repository.PathStore())
	for i := 0; i < shardDepth && len(encoded) > shardWidth; i++ {
		segments = append(segments, encoded[:shardWidth])
		encoded = encoded[shardWidth:]
	}
	segments = append(segments, encoded)
	return filepath.Join(segments...)
}
