package objects

import (
	"encoding/hex"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Object is the immutable result record returned by the engine. Digests
// holds one entry per configured algorithm, keyed by algorithm name.
type Object struct {
	Digests  map[string][]byte `msgpack:"digests" json:"digests"`
	Size     int64             `msgpack:"size" json:"size"`
	Type     string            `msgpack:"type,omitempty" json:"type,omitempty"`
	Language string            `msgpack:"language,omitempty" json:"language,omitempty"`
	Charset  string            `msgpack:"charset,omitempty" json:"charset,omitempty"`
	Encoding string            `msgpack:"encoding,omitempty" json:"encoding,omitempty"`
	CTime    time.Time         `msgpack:"ctime" json:"ctime"`
	MTime    time.Time         `msgpack:"mtime" json:"mtime"`
	PTime    time.Time         `msgpack:"ptime,omitempty" json:"ptime,omitempty"`
	DTime    time.Time         `msgpack:"dtime,omitempty" json:"dtime,omitempty"`
}

func NewObject() *Object {
	return &Object{
		Digests: make(map[string][]byte),
	}
}

func NewObjectFromBytes(serialized []byte) (*Object, error) {
	var o Object
	if err := msgpack.Unmarshal(serialized, &o); err != nil {
		return nil, err
	}
	if o.Digests == nil {
		o.Digests = make(map[string][]byte)
	}
	return &o, nil
}

func (o *Object) Serialize() ([]byte, error) {
	return msgpack.Marshal(o)
}

func (o *Object) Digest(algorithm string) []byte {
	return o.Digests[algorithm]
}

func (o *Object) HexDigest(algorithm string) string {
	return hex.EncodeToString(o.Digests[algorithm])
}

// Deleted reports whether the object is soft-deleted: metadata retained,
// content gone.
func (o *Object) Deleted() bool {
	return !o.DTime.IsZero()
}

// Stats is a read-only snapshot of the store-wide counters.
type Stats struct {
	Objects uint64    `msgpack:"objects" json:"objects"`
	Deleted uint64    `msgpack:"deleted" json:"deleted"`
	Bytes   uint64    `msgpack:"bytes" json:"bytes"`
	CTime   time.Time `msgpack:"ctime" json:"ctime"`
	MTime   time.Time `msgpack:"mtime" json:"mtime"`
}

func (s *Stats) Serialize() ([]byte, error) {
	return msgpack.Marshal(s)
}

func NewStatsFromBytes(serialized []byte) (*Stats, error) {
	var s Stats
	if err := msgpack.Unmarshal(serialized, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
