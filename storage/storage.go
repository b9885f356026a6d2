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

package storage

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/poolpOrg/hoard/hashing"
	"github.com/poolpOrg/hoard/logging"
	"github.com/poolpOrg/hoard/objects"
)

var (
	// ErrNotFound is the normal result for lookups and removals on
	// absent keys, not a failure.
	ErrNotFound = errors.New("object not found")

	// ErrNoContent is returned when opening the content of a
	// soft-deleted object: the record exists, the bytes do not.
	ErrNoContent = errors.New("object content removed")

	// ErrStorageFull flags a placement failure caused by an exhausted
	// filesystem; other I/O failures propagate as-is.
	ErrStorageFull = errors.New("storage full")

	ErrConfigMismatch     = errors.New("store configuration mismatch")
	ErrDigestMismatch     = errors.New("digest mismatch")
	ErrCorruptRecord      = errors.New("corrupt record")
	ErrTransactionAborted = errors.New("transaction aborted")
)

// Configuration is the persistent store configuration, recorded at
// creation time and validated on every open.
type Configuration struct {
	Algorithms []string `msgpack:"algorithms" json:"algorithms"`
	Primary    string   `msgpack:"primary" json:"primary"`
}

func NewConfiguration() Configuration {
	return Configuration{
		Algorithms: hashing.DefaultAlgorithms(),
		Primary:    hashing.DefaultPrimary(),
	}
}

// AddOptions carries the caller-supplied metadata of an add operation.
// Every field is optional; Assert makes the add fail with
// ErrDigestMismatch unless the computed digest agrees.
type AddOptions struct {
	Type     string
	Language string
	Charset  string
	Encoding string
	ModTime  time.Time
	Assert   *objects.Digest
}

// PatchOptions carries a metadata-only edit; nil fields are untouched.
type PatchOptions struct {
	Type     *string
	Language *string
	Charset  *string
	Encoding *string
	ModTime  *time.Time
}

// Backend is the capability set of a store driver: the filesystem
// driver is the single concrete implementation today.
type Backend interface {
	Create(location string, config Configuration) error
	Open(location string, want *Configuration) error
	Configuration() Configuration

	Add(rd io.Reader, opts *AddOptions) (*objects.Object, error)
	Get(algorithm string, digest []byte) (*objects.Object, error)
	GetPrefix(algorithm string, partial []byte) ([]*objects.Object, error)
	OpenContent(digest []byte) (io.ReadCloser, error)
	Patch(digest []byte, opts *PatchOptions) (*objects.Object, error)
	Remove(digest []byte) (*objects.Object, error)
	Forget(digest []byte) (bool, error)
	Stats() (*objects.Stats, error)
	List(opts *objects.ListOptions) ([]*objects.Object, error)

	Close() error
}

var muBackends sync.Mutex
var backends map[string]func() Backend = make(map[string]func() Backend)

func Register(name string, backend func() Backend) {
	muBackends.Lock()
	defer muBackends.Unlock()

	if _, ok := backends[name]; ok {
		panic(fmt.Sprintf("backend '%s' registered twice", name))
	}
	backends[name] = backend
}

func Backends() []string {
	muBackends.Lock()
	defer muBackends.Unlock()

	ret := make([]string, 0)
	for backendName := range backends {
		ret = append(ret, backendName)
	}
	sort.Strings(ret)
	return ret
}

func backendFor(location string) (string, string, error) {
	name := "fs"
	if index := strings.Index(location, "://"); index != -1 {
		name = location[:index]
		location = location[index+3:]
	}

	muBackends.Lock()
	defer muBackends.Unlock()
	if _, exists := backends[name]; !exists {
		return "", "", fmt.Errorf("unknown backend '%s'", name)
	}
	return name, location, nil
}

func Create(location string, config Configuration) (*Store, error) {
	name, location, err := backendFor(location)
	if err != nil {
		return nil, err
	}

	muBackends.Lock()
	backend := backends[name]()
	muBackends.Unlock()

	if err := backend.Create(location, config); err != nil {
		return nil, err
	}
	return &Store{backend: backend, location: location}, nil
}

func Open(location string, want *Configuration) (*Store, error) {
	name, location, err := backendFor(location)
	if err != nil {
		return nil, err
	}

	muBackends.Lock()
	backend := backends[name]()
	muBackends.Unlock()

	if err := backend.Open(location, want); err != nil {
		return nil, err
	}
	return &Store{backend: backend, location: location}, nil
}

// Store wraps a backend with trace logging, one Trace call per
// operation, under the "storage" subsystem.
type Store struct {
	backend  Backend
	location string
}

func (store *Store) Location() string {
	return store.location
}

func (store *Store) Configuration() Configuration {
	return store.backend.Configuration()
}

func (store *Store) Add(rd io.Reader, opts *AddOptions) (*objects.Object, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "Add(): %s", time.Since(t0))
	}()
	return store.backend.Add(rd, opts)
}

func (store *Store) Get(algorithm string, digest []byte) (*objects.Object, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "Get(%s, %x): %s", algorithm, digest, time.Since(t0))
	}()
	return store.backend.Get(algorithm, digest)
}

func (store *Store) GetPrefix(algorithm string, partial []byte) ([]*objects.Object, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "GetPrefix(%s, %x): %s", algorithm, partial, time.Since(t0))
	}()
	return store.backend.GetPrefix(algorithm, partial)
}

// Lookup dispatches between exact and prefix resolution: a digest
// shorter than the algorithm's full length is always a prefix query,
// even when it happens to equal a full digest's prefix.
func (store *Store) Lookup(algorithm string, digest []byte) ([]*objects.Object, error) {
	if len(digest) < hashing.Size(algorithm) {
		return store.GetPrefix(algorithm, digest)
	}
	object, err := store.Get(algorithm, digest)
	if err != nil {
		return nil, err
	}
	return []*objects.Object{object}, nil
}

func (store *Store) OpenContent(digest []byte) (io.ReadCloser, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "OpenContent(%x): %s", digest, time.Since(t0))
	}()
	return store.backend.OpenContent(digest)
}

func (store *Store) Patch(digest []byte, opts *PatchOptions) (*objects.Object, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "Patch(%x): %s", digest, time.Since(t0))
	}()
	return store.backend.Patch(digest, opts)
}

func (store *Store) Remove(digest []byte) (*objects.Object, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "Remove(%x): %s", digest, time.Since(t0))
	}()
	return store.backend.Remove(digest)
}

func (store *Store) Forget(digest []byte) (bool, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "Forget(%x): %s", digest, time.Since(t0))
	}()
	return store.backend.Forget(digest)
}

func (store *Store) Stats() (*objects.Stats, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "Stats(): %s", time.Since(t0))
	}()
	return store.backend.Stats()
}

func (store *Store) List(opts *objects.ListOptions) ([]*objects.Object, error) {
	t0 := time.Now()
	defer func() {
		logging.Trace("storage", "List(): %s", time.Since(t0))
	}()
	return store.backend.List(opts)
}

func (store *Store) Close() error {
	return store.backend.Close()
}
