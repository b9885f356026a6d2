/*
 * Copyright (c) 2021 Gilles Chehade <gilles@poolp.org>
 *
 * Permission to use, copy, modify, and distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/poolpOrg/hoard/hashing"
	"github.com/poolpOrg/hoard/logging"
	"github.com/poolpOrg/hoard/objects"
	"github.com/poolpOrg/hoard/storage"
)

type Repository struct {
	config storage.Configuration
	root   string
	db     *leveldb.DB
}

func init() {
	storage.Register("fs", NewRepository)
}

func NewRepository() storage.Backend {
	return &Repository{}
}

func (repository *Repository) Create(location string, config storage.Configuration) error {
	t0 := time.Now()
	defer func() {
		logging.Trace("fs", "Create(%s): %s", location, time.Since(t0))
	}()

	algorithms, err := hashing.ValidateAlgorithms(config.Algorithms, config.Primary)
	if err != nil {
		return err
	}
	repository.config = storage.Configuration{
		Algorithms: algorithms,
		Primary:    config.Primary,
	}
	repository.root = location

	if err := os.MkdirAll(repository.root, 0700); err != nil {
		return err
	}
	if err := os.MkdirAll(repository.PathStore(), 0700); err != nil {
		return err
	}
	if err := os.MkdirAll(repository.PathTmp(), 0700); err != nil {
		return err
	}

	db, err := leveldb.OpenFile(repository.PathIndex(), nil)
	if err != nil {
		return err
	}
	repository.db = db

	if _, err := controlGet(db, controlAlgorithms); err == nil {
		db.Close()
		return fmt.Errorf("store already initialized at %s", location)
	}

	tx, err := db.OpenTransaction()
	if err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}
	now := uint64(time.Now().Unix())
	if err := func() error {
		if err := controlPut(tx, controlAlgorithms, strings.Join(algorithms, ",")); err != nil {
			return err
		}
		if err := controlPut(tx, controlPrimary, config.Primary); err != nil {
			return err
		}
		for _, counter := range []string{controlObjects, controlDeleted, controlBytes} {
			if err := controlPutInt(tx, counter, 0); err != nil {
				return err
			}
		}
		if err := controlPutInt(tx, controlCTime, now); err != nil {
			return err
		}
		return controlPutInt(tx, controlMTime, now)
	}(); err != nil {
		tx.Discard()
		db.Close()
		return err
	}
	if err := tx.Commit(); err != nil {
		tx.Discard()
		db.Close()
		return fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}

	return nil
}

func (repository *Repository) Open(location string, want *storage.Configuration) error {
	t0 := time.Now()
	defer func() {
		logging.Trace("fs", "Open(%s): %s", location, time.Since(t0))
	}()

	repository.root = location

	db, err := leveldb.OpenFile(repository.PathIndex(), nil)
	if err != nil {
		return err
	}

	algorithms, primary, err := controlGetAlgorithms(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("not a store: %s: %w", location, err)
	}
	repository.config = storage.Configuration{
		Algorithms: algorithms,
		Primary:    primary,
	}
	repository.db = db

	if want != nil {
		wantAlgorithms, err := hashing.ValidateAlgorithms(want.Algorithms, want.Primary)
		if err != nil {
			db.Close()
			return err
		}
		if strings.Join(wantAlgorithms, ",") != strings.Join(algorithms, ",") ||
			want.Primary != primary {
			db.Close()
			return fmt.Errorf("%w: store has algorithms=%s primary=%s",
				storage.ErrConfigMismatch, strings.Join(algorithms, ","), primary)
		}
	}

	return nil
}

func (repository *Repository) Configuration() storage.Configuration {
	return repository.config
}

func (repository *Repository) Close() error {
	return repository.db.Close()
}

func (repository *Repository) buildObject(primaryDigest []byte, r *record) *objects.Object {
	o := objects.NewObject()
	o.Digests[repository.config.Primary] = append([]byte(nil), primaryDigest...)
	for algorithm, digest := range r.secondaries {
		o.Digests[algorithm] = append([]byte(nil), digest...)
	}
	o.Size = int64(r.size)
	o.Type = r.contentType
	o.Language = r.language
	o.Charset = r.charset
	o.Encoding = r.encoding
	o.CTime = time.Unix(int64(r.ctime), 0).UTC()
	o.MTime = time.Unix(int64(r.mtime), 0).UTC()
	if r.ptime != 0 {
		o.PTime = time.Unix(int64(r.ptime), 0).UTC()
	}
	if r.dtime != 0 {
		o.DTime = time.Unix(int64(r.dtime), 0).UTC()
	}
	return o
}

func (repository *Repository) putRecord(tx *leveldb.Transaction, primaryDigest []byte, r *record) error {
	blob, err := encodeRecord(r, repository.config.Algorithms, repository.config.Primary)
	if err != nil {
		return err
	}
	return tx.Put(mappingKey(repository.config.Primary, primaryDigest), blob, nil)
}

// stage consumes the content stream into a temp file under tmp/,
// computing every configured digest in the same pass. The staging area
// is outside the content tree so an interrupted write never pollutes
// the addressable namespace.
func (repository *Repository) stage(rd io.Reader) (string, int64, map[string][]byte, error) {
	ds, err := hashing.NewDigestSet(repository.config.Algorithms)
	if err != nil {
		return "", 0, nil, err
	}

	staging, err := os.CreateTemp(repository.PathTmp(), fmt.Sprintf("%s.*", uuid.New().String()))
	if err != nil {
		return "", 0, nil, err
	}

	size, err := ds.Consume(rd, staging)
	if err != nil {
		staging.Close()
		os.Remove(staging.Name())
		return "", 0, nil, err
	}
	if err := staging.Close(); err != nil {
		os.Remove(staging.Name())
		return "", 0, nil, err
	}

	return staging.Name(), size, ds.Sums(), nil
}

// placementError classifies a filesystem failure from the publish step.
func placementError(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %v", storage.ErrStorageFull, err)
	}
	return err
}

// place publishes the staged file at target unless content is already
// present: content is immutable and keyed by its own digest, so an
// existing target is byte-identical by construction. Rename is the only
// publish step.
func (repository *Repository) place(staged string, target string) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return placementError(err)
	}
	if err := os.Rename(staged, target); err != nil {
		return placementError(err)
	}
	return nil
}

func (repository *Repository) Add(rd io.Reader, opts *storage.AddOptions) (*objects.Object, error) {
	if opts == nil {
		opts = &storage.AddOptions{}
	}

	staged, size, sums, err := repository.stage(rd)
	if err != nil {
		return nil, err
	}

	if opts.Assert != nil {
		computed, exists := sums[opts.Assert.Algorithm]
		if !exists || !bytes.Equal(computed, opts.Assert.Value) {
			os.Remove(staged)
			return nil, fmt.Errorf("%w: %s computed %x, asserted %x",
				storage.ErrDigestMismatch, opts.Assert.Algorithm, computed, opts.Assert.Value)
		}
	}

	primaryDigest := sums[repository.config.Primary]
	target := repository.PathObject(primaryDigest)

	tx, err := repository.db.OpenTransaction()
	if err != nil {
		os.Remove(staged)
		return nil, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}

	now := uint32(time.Now().Unix())
	r, err := repository.getRecord(tx, primaryDigest)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		tx.Discard()
		os.Remove(staged)
		return nil, err
	}

	// Placement happens while the transaction is held so it is ordered
	// against a concurrent removal's unlink: a record committed live by
	// this transaction always has its content on disk. The staged file
	// is kept until after the commit.
	if err := repository.place(staged, target); err != nil {
		tx.Discard()
		os.Remove(staged)
		return nil, err
	}

	if err := func() error {
		if r == nil {
			contentType := opts.Type
			if contentType == "" {
				if detected, err := mimetype.DetectFile(target); err == nil {
					contentType = detected.String()
				} else {
					contentType = "application/octet-stream"
				}
			}
			mtime := now
			if !opts.ModTime.IsZero() {
				mtime = uint32(opts.ModTime.Unix())
			}

			secondaries := make(map[string][]byte)
			for algorithm, digest := range sums {
				if algorithm != repository.config.Primary {
					secondaries[algorithm] = digest
				}
			}
			r = &record{
				secondaries: secondaries,
				ctime:       now,
				mtime:       mtime,
				size:        uint64(size),
				contentType: contentType,
				language:    opts.Language,
				charset:     opts.Charset,
				encoding:    opts.Encoding,
			}
			if err := repository.putRecord(tx, primaryDigest, r); err != nil {
				return err
			}
			for algorithm, digest := range secondaries {
				if err := tx.Put(mappingKey(algorithm, digest), primaryDigest, nil); err != nil {
					return err
				}
			}

			count, err := controlGetInt(tx, controlObjects)
			if err != nil {
				return err
			}
			if err := controlPutInt(tx, controlObjects, count+1); err != nil {
				return err
			}
			total, err := controlGetInt(tx, controlBytes)
			if err != nil {
				return err
			}
			if err := controlPutInt(tx, controlBytes, total+uint64(size)); err != nil {
				return err
			}
			return controlPutInt(tx, controlMTime, uint64(now))
		}

		if r.dtime != 0 {
			// resurrection: content is back on disk, clear dtime
			r.dtime = 0
			if err := repository.putRecord(tx, primaryDigest, r); err != nil {
				return err
			}
			deleted, err := controlGetInt(tx, controlDeleted)
			if err != nil {
				return err
			}
			if deleted > 0 {
				deleted--
			}
			if err := controlPutInt(tx, controlDeleted, deleted); err != nil {
				return err
			}
			total, err := controlGetInt(tx, controlBytes)
			if err != nil {
				return err
			}
			if err := controlPutInt(tx, controlBytes, total+r.size); err != nil {
				return err
			}
			return controlPutInt(tx, controlMTime, uint64(now))
		}

		// idempotent re-add of live content: nothing to mutate
		return nil
	}(); err != nil {
		tx.Discard()
		os.Remove(staged)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		tx.Discard()
		os.Remove(staged)
		return nil, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}
	os.Remove(staged)

	return repository.buildObject(primaryDigest, r), nil
}

func (repository *Repository) Get(algorithm string, digest []byte) (*objects.Object, error) {
	snap, err := repository.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	primaryDigest, err := repository.resolvePrimary(snap, algorithm, digest)
	if err != nil {
		return nil, err
	}
	r, err := repository.getRecord(snap, primaryDigest)
	if err != nil {
		return nil, err
	}
	return repository.buildObject(primaryDigest, r), nil
}

func (repository *Repository) GetPrefix(algorithm string, partial []byte) ([]*objects.Object, error) {
	snap, err := repository.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	rng, err := prefixRange(algorithm, partial)
	if err != nil {
		return nil, err
	}

	ret := make([]*objects.Object, 0)
	iter := snap.NewIterator(rng, nil)
	defer iter.Release()
	for iter.Next() {
		primaryDigest := primaryFromKey(algorithm, iter.Key())
		var r *record
		if algorithm == repository.config.Primary {
			r, err = decodeRecord(iter.Value(), repository.config.Algorithms, repository.config.Primary)
		} else {
			primaryDigest = append([]byte(nil), iter.Value()...)
			r, err = repository.getRecord(snap, primaryDigest)
		}
		if err != nil {
			return nil, err
		}
		ret = append(ret, repository.buildObject(primaryDigest, r))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (repository *Repository) OpenContent(digest []byte) (io.ReadCloser, error) {
	snap, err := repository.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	r, err := repository.getRecord(snap, digest)
	if err != nil {
		return nil, err
	}
	if r.dtime != 0 {
		return nil, storage.ErrNoContent
	}
	f, err := os.Open(repository.PathObject(digest))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: content file missing", storage.ErrNoContent)
		}
		return nil, err
	}
	return f, nil
}

func (repository *Repository) Patch(digest []byte, opts *storage.PatchOptions) (*objects.Object, error) {
	if opts == nil {
		opts = &storage.PatchOptions{}
	}

	tx, err := repository.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}

	r, err := repository.getRecord(tx, digest)
	if err != nil {
		tx.Discard()
		return nil, err
	}

	now := uint32(time.Now().Unix())
	if opts.Type != nil {
		r.contentType = *opts.Type
	}
	if opts.Language != nil {
		r.language = *opts.Language
	}
	if opts.Charset != nil {
		r.charset = *opts.Charset
	}
	if opts.Encoding != nil {
		r.encoding = *opts.Encoding
	}
	if opts.ModTime != nil {
		r.mtime = uint32(opts.ModTime.Unix())
	}
	r.ptime = now

	if err := func() error {
		if err := repository.putRecord(tx, digest, r); err != nil {
			return err
		}
		return controlPutInt(tx, controlMTime, uint64(now))
	}(); err != nil {
		tx.Discard()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		tx.Discard()
		return nil, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}

	return repository.buildObject(digest, r), nil
}

func (repository *Repository) Remove(digest []byte) (*objects.Object, error) {
	tx, err := repository.db.OpenTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}

	r, err := repository.getRecord(tx, digest)
	if err != nil {
		tx.Discard()
		return nil, err
	}

	if r.dtime == 0 {
		now := uint32(time.Now().Unix())
		if err := os.Remove(repository.PathObject(digest)); err != nil && !os.IsNotExist(err) {
			tx.Discard()
			return nil, err
		}
		r.dtime = now

		if err := func() error {
			if err := repository.putRecord(tx, digest, r); err != nil {
				return err
			}
			deleted, err := controlGetInt(tx, controlDeleted)
			if err != nil {
				return err
			}
			if err := controlPutInt(tx, controlDeleted, deleted+1); err != nil {
				return err
			}
			total, err := controlGetInt(tx, controlBytes)
			if err != nil {
				return err
			}
			if total >= r.size {
				total -= r.size
			} else {
				total = 0
			}
			if err := controlPutInt(tx, controlBytes, total); err != nil {
				return err
			}
			return controlPutInt(tx, controlMTime, uint64(now))
		}(); err != nil {
			tx.Discard()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		tx.Discard()
		return nil, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}
	return repository.buildObject(digest, r), nil
}

func (repository *Repository) Forget(digest []byte) (bool, error) {
	tx, err := repository.db.OpenTransaction()
	if err != nil {
		return false, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}

	r, err := repository.getRecord(tx, digest)
	if err != nil {
		tx.Discard()
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	now := uint32(time.Now().Unix())
	if err := func() error {
		if r.dtime == 0 {
			if err := os.Remove(repository.PathObject(digest)); err != nil && !os.IsNotExist(err) {
				return err
			}
			total, err := controlGetInt(tx, controlBytes)
			if err != nil {
				return err
			}
			if total >= r.size {
				total -= r.size
			} else {
				total = 0
			}
			if err := controlPutInt(tx, controlBytes, total); err != nil {
				return err
			}
		} else {
			deleted, err := controlGetInt(tx, controlDeleted)
			if err != nil {
				return err
			}
			if deleted > 0 {
				deleted--
			}
			if err := controlPutInt(tx, controlDeleted, deleted); err != nil {
				return err
			}
		}

		if err := tx.Delete(mappingKey(repository.config.Primary, digest), nil); err != nil {
			return err
		}
		for algorithm, secondary := range r.secondaries {
			if err := tx.Delete(mappingKey(algorithm, secondary), nil); err != nil {
				return err
			}
		}

		count, err := controlGetInt(tx, controlObjects)
		if err != nil {
			return err
		}
		if count > 0 {
			count--
		}
		if err := controlPutInt(tx, controlObjects, count); err != nil {
			return err
		}
		return controlPutInt(tx, controlMTime, uint64(now))
	}(); err != nil {
		tx.Discard()
		return false, err
	}

	if err := tx.Commit(); err != nil {
		tx.Discard()
		return false, fmt.Errorf("%w: %v", storage.ErrTransactionAborted, err)
	}
	return true, nil
}

func (repository *Repository) Stats() (*objects.Stats, error) {
	snap, err := repository.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	stats := &objects.Stats{}
	if stats.Objects, err = controlGetInt(snap, controlObjects); err != nil {
		return nil, err
	}
	if stats.Deleted, err = controlGetInt(snap, controlDeleted); err != nil {
		return nil, err
	}
	if stats.Bytes, err = controlGetInt(snap, controlBytes); err != nil {
		return nil, err
	}
	ctime, err := controlGetInt(snap, controlCTime)
	if err != nil {
		return nil, err
	}
	mtime, err := controlGetInt(snap, controlMTime)
	if err != nil {
		return nil, err
	}
	stats.CTime = time.Unix(int64(ctime), 0).UTC()
	stats.MTime = time.Unix(int64(mtime), 0).UTC()
	return stats, nil
}

func (repository *Repository) List(opts *objects.ListOptions) ([]*objects.Object, error) {
	if opts == nil {
		opts = &objects.ListOptions{}
	}

	snap, err := repository.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	primary := repository.config.Primary
	rng := prefixRangeBounds(primary, opts.Start, opts.End)

	ret := make([]*objects.Object, 0)
	iter := snap.NewIterator(rng, nil)
	defer iter.Release()
	for iter.Next() {
		primaryDigest := primaryFromKey(primary, iter.Key())
		r, err := decodeRecord(iter.Value(), repository.config.Algorithms, primary)
		if err != nil {
			return nil, err
		}
		o := repository.buildObject(primaryDigest, r)

		matched := true
		for i := range opts.Filters {
			ok, err := opts.Filters[i].Match(o)
			if err != nil {
				return nil, err
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			ret = append(ret, o)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	if len(opts.SortKeys) > 0 {
		if err := objects.SortObjects(ret, opts.SortKeys); err != nil {
			return nil, err
		}
	}
	if opts.Reverse {
		for i, j := 0, len(ret)-1; i < j; i, j = i+1, j-1 {
			ret[i], ret[j] = ret[j], ret[i]
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(ret) {
			return []*objects.Object{}, nil
		}
		ret = ret[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(ret) {
		ret = ret[:opts.Limit]
	}
	return ret, nil
}
