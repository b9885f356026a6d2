package fs

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/poolpOrg/hoard/hashing"
	"github.com/poolpOrg/hoard/storage"
)

// The index environment is one leveldb keyspace holding one ordered
// mapping per configured algorithm plus the control mapping, separated
// by fixed key prefixes. Prefixes are constant within a mapping, so
// byte-lexical digest order is preserved inside each one. The
// primary-algorithm mapping's value is the encoded record; every other
// mapping's value is the primary digest.

func mappingPrefix(algorithm string) []byte {
	return []byte("idx:" + algorithm + ":")
}

func mappingKey(algorithm string, digest []byte) []byte {
	return append(mappingPrefix(algorithm), digest...)
}

func controlKey(name string) []byte {
	return []byte("control:" + name)
}

// indexReader is satisfied by *leveldb.DB, *leveldb.Snapshot and
// *leveldb.Transaction; reads that span mappings always go through a
// single one of them to get a consistent view.
type indexReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// incrementKey treats key as a fixed-width big-endian unsigned integer
// and increments it by one, with carry. Reports overflow when every
// byte was 0xff. This is what makes prefix queries terminate correctly
// over a fixed-width key space.
func incrementKey(key []byte) ([]byte, bool) {
	ret := make([]byte, len(key))
	copy(ret, key)
	for i := len(ret) - 1; i >= 0; i-- {
		ret[i]++
		if ret[i] != 0x00 {
			return ret, false
		}
	}
	return ret, true
}

// prefixRange builds the closed scan range [partial·0x00…, partial·0xff…]
// over an algorithm's fixed-width key space, expressed as a leveldb
// range whose Limit is exclusive.
func prefixRange(algorithm string, partial []byte) (*util.Range, error) {
	full := hashing.Size(algorithm)
	if full == 0 {
		return nil, fmt.Errorf("unknown algorithm: %s", algorithm)
	}
	if len(partial) > full {
		return nil, fmt.Errorf("digest longer than %s width: %d bytes", algorithm, len(partial))
	}

	lower := make([]byte, full)
	copy(lower, partial)

	upper := make([]byte, full)
	copy(upper, partial)
	for i := len(partial); i < full; i++ {
		upper[i] = 0xff
	}

	rng := util.BytesPrefix(mappingPrefix(algorithm))
	rng.Start = mappingKey(algorithm, lower)
	if limit, overflow := incrementKey(upper); !overflow {
		rng.Limit = mappingKey(algorithm, limit)
	}
	return rng, nil
}

// prefixRangeBounds builds the enumeration range of a list operation:
// a closed [start, end] digest interval over one mapping, either bound
// optional and possibly shorter than the algorithm's full width.
func prefixRangeBounds(algorithm string, start []byte, end []byte) *util.Range {
	rng := util.BytesPrefix(mappingPrefix(algorithm))
	if len(start) > 0 {
		rng.Start = mappingKey(algorithm, start)
	}
	if len(end) > 0 {
		full := hashing.Size(algorithm)
		upper := make([]byte, full)
		copy(upper, end)
		for i := len(end); i < full; i++ {
			upper[i] = 0xff
		}
		if limit, overflow := incrementKey(upper); !overflow {
			rng.Limit = mappingKey(algorithm, limit)
		}
	}
	return rng
}

// resolvePrimary maps a digest under any configured algorithm to the
// primary digest it points at.
func (repository *Repository) resolvePrimary(rd indexReader, algorithm string, digest []byte) ([]byte, error) {
	if algorithm == repository.config.Primary {
		return digest, nil
	}
	pointer, err := rd.Get(mappingKey(algorithm, digest), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return pointer, nil
}

func (repository *Repository) getRecord(rd indexReader, primaryDigest []byte) (*record, error) {
	data, err := rd.Get(mappingKey(repository.config.Primary, primaryDigest), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return decodeRecord(data, repository.config.Algorithms, repository.config.Primary)
}

// primaryFromKey strips the mapping prefix off an iterator key.
func primaryFromKey(algorithm string, key []byte) []byte {
	digest := make([]byte, len(key)-len(mappingPrefix(algorithm)))
	copy(digest, key[len(mappingPrefix(algorithm)):])
	return digest
}
