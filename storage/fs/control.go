package fs

import (
	"strconv"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
)

// Control mapping keys. Counters are never recomputed from a scan; they
// mutate only inside the transaction that caused the change.
const (
	controlAlgorithms = "algorithms"
	controlPrimary    = "primary"
	controlObjects    = "objects"
	controlDeleted    = "deleted"
	controlBytes      = "bytes"
	controlCTime      = "ctime"
	controlMTime      = "mtime"
)

func controlGet(rd indexReader, name string) (string, error) {
	data, err := rd.Get(controlKey(name), nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Integer control values are decimal ASCII: the algorithms and primary
// keys have to be text anyway and this keeps the control mapping
// inspectable with stock leveldb tooling.
func controlGetInt(rd indexReader, name string) (uint64, error) {
	text, err := controlGet(rd, name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(text, 10, 64)
}

func controlPut(tx *leveldb.Transaction, name string, value string) error {
	return tx.Put(controlKey(name), []byte(value), nil)
}

func controlPutInt(tx *leveldb.Transaction, name string, value uint64) error {
	return controlPut(tx, name, strconv.FormatUint(value, 10))
}

func controlGetAlgorithms(rd indexReader) ([]string, string, error) {
	joined, err := controlGet(rd, controlAlgorithms)
	if err != nil {
		return nil, "", err
	}
	primary, err := controlGet(rd, controlPrimary)
	if err != nil {
		return nil, "", err
	}
	return strings.Split(joined, ","), primary, nil
}
