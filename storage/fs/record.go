package fs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/poolpOrg/hoard/hashing"
	"github.com/poolpOrg/hoard/storage"
)

// record is the fixed-layout metadata blob stored under the primary
// digest. Layout: the raw digest of every non-primary algorithm in
// sorted algorithm-name order, four 32-bit big-endian timestamps
// (ctime, mtime, ptime, dtime; zero means unset for the last two), a
// 64-bit big-endian content size, one flag byte, then four
// NUL-terminated strings (type, language, charset, encoding; empty when
// absent). The size is persisted because it must outlive the content
// file across a soft-delete. Secondary indexes never duplicate this
// blob, they point at the primary key.
type record struct {
	secondaries map[string][]byte
	ctime       uint32
	mtime       uint32
	ptime       uint32
	dtime       uint32
	size        uint64
	flags       byte
	contentType string
	language    string
	charset     string
	encoding    string
}

// secondaryAlgorithms returns the configured algorithms minus the
// primary, in the sorted order the codec relies on. The configuration
// is kept sorted, so this is a filter, not a sort.
func secondaryAlgorithms(algorithms []string, primary string) []string {
	ret := make([]string, 0, len(algorithms))
	for _, algorithm := range algorithms {
		if algorithm != primary {
			ret = append(ret, algorithm)
		}
	}
	return ret
}

func encodeRecord(r *record, algorithms []string, primary string) ([]byte, error) {
	buffer := &bytes.Buffer{}

	for _, algorithm := range secondaryAlgorithms(algorithms, primary) {
		digest := r.secondaries[algorithm]
		if len(digest) != hashing.Size(algorithm) {
			return nil, fmt.Errorf("%w: bad %s digest length %d",
				storage.ErrCorruptRecord, algorithm, len(digest))
		}
		buffer.Write(digest)
	}

	timestamps := [4]uint32{r.ctime, r.mtime, r.ptime, r.dtime}
	for _, timestamp := range timestamps {
		if err := binary.Write(buffer, binary.BigEndian, timestamp); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(buffer, binary.BigEndian, r.size); err != nil {
		return nil, err
	}
	buffer.WriteByte(r.flags)

	for _, field := range []string{r.contentType, r.language, r.charset, r.encoding} {
		buffer.WriteString(field)
		buffer.WriteByte(0x00)
	}

	return buffer.Bytes(), nil
}

func decodeRecord(data []byte, algorithms []string, primary string) (*record, error) {
	r := &record{
		secondaries: make(map[string][]byte),
	}

	offset := 0
	for _, algorithm := range secondaryAlgorithms(algorithms, primary) {
		size := hashing.Size(algorithm)
		if offset+size > len(data) {
			return nil, fmt.Errorf("%w: truncated %s digest", storage.ErrCorruptRecord, algorithm)
		}
		digest := make([]byte, size)
		copy(digest, data[offset:offset+size])
		r.secondaries[algorithm] = digest
		offset += size
	}

	if offset+16+8+1 > len(data) {
		return nil, fmt.Errorf("%w: truncated header", storage.ErrCorruptRecord)
	}
	r.ctime = binary.BigEndian.Uint32(data[offset:])
	r.mtime = binary.BigEndian.Uint32(data[offset+4:])
	r.ptime = binary.BigEndian.Uint32(data[offset+8:])
	r.dtime = binary.BigEndian.Uint32(data[offset+12:])
	r.size = binary.BigEndian.Uint64(data[offset+16:])
	r.flags = data[offset+24]
	offset += 25

	fields := [4]string{}
	for i := 0; i < 4; i++ {
		terminator := bytes.IndexByte(data[offset:], 0x00)
		if terminator == -1 {
			return nil, fmt.Errorf("%w: unterminated string field", storage.ErrCorruptRecord)
		}
		fields[i] = string(data[offset : offset+terminator])
		offset += terminator + 1
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", storage.ErrCorruptRecord, len(data)-offset)
	}

	r.contentType = fields[0]
	r.language = fields[1]
	r.charset = fields[2]
	r.encoding = fields[3]

	return r, nil
}
