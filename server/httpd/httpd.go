package httpd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/poolpOrg/hoard/hashing"
	"github.com/poolpOrg/hoard/logging"
	"github.com/poolpOrg/hoard/objects"
	"github.com/poolpOrg/hoard/storage"
)

var lstore *storage.Store

func statusOf(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrNoContent):
		return http.StatusGone
	case errors.Is(err, storage.ErrDigestMismatch):
		return http.StatusConflict
	case errors.Is(err, storage.ErrTransactionAborted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func reply(w http.ResponseWriter, r *http.Request, payload interface{}) {
	if r.Header.Get("Accept") == "application/msgpack" {
		w.Header().Set("Content-Type", "application/msgpack")
		if err := msgpack.NewEncoder(w).Encode(payload); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseAlgorithm(w http.ResponseWriter, r *http.Request) (string, bool) {
	algorithm := mux.Vars(r)["algorithm"]
	for _, configured := range lstore.Configuration().Algorithms {
		if algorithm == configured {
			return algorithm, true
		}
	}
	http.Error(w, fmt.Sprintf("unknown algorithm: %s", algorithm), http.StatusNotFound)
	return "", false
}

func parseDigest(w http.ResponseWriter, r *http.Request, algorithm string) (objects.Digest, bool) {
	digest, err := objects.ParseHexDigest(algorithm, mux.Vars(r)["digest"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return objects.Digest{}, false
	}
	if len(digest.Value) > hashing.Size(algorithm) {
		http.Error(w, "digest too long", http.StatusBadRequest)
		return objects.Digest{}, false
	}
	return digest, true
}

func getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := lstore.Stats()
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	reply(w, r, stats)
}

func getObject(w http.ResponseWriter, r *http.Request) {
	algorithm, ok := parseAlgorithm(w, r)
	if !ok {
		return
	}
	digest, ok := parseDigest(w, r, algorithm)
	if !ok {
		return
	}

	// a short digest is always a prefix query
	if len(digest.Value) < hashing.Size(algorithm) {
		matches, err := lstore.GetPrefix(algorithm, digest.Value)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		reply(w, r, matches)
		return
	}

	object, err := lstore.Get(algorithm, digest.Value)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	if r.URL.Query().Get("meta") != "" {
		reply(w, r, object)
		return
	}

	if object.Deleted() {
		http.Error(w, "content removed", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", object.Type)
	w.Header().Set("Content-Length", strconv.FormatInt(object.Size, 10))
	if object.Language != "" {
		w.Header().Set("Content-Language", object.Language)
	}
	if r.Method == http.MethodHead {
		return
	}

	rd, err := lstore.OpenContent(object.Digest(lstore.Configuration().Primary))
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	defer rd.Close()
	if _, err := io.Copy(w, rd); err != nil {
		logging.Warn("httpd: content copy: %s", err)
	}
}

func addOptionsFromRequest(r *http.Request) *storage.AddOptions {
	opts := &storage.AddOptions{
		Type:     r.Header.Get("Content-Type"),
		Language: r.Header.Get("Content-Language"),
		Encoding: r.Header.Get("X-Content-Encoding"),
		Charset:  r.Header.Get("X-Content-Charset"),
	}
	if opts.Type == "application/octet-stream" {
		// let the engine sniff instead of trusting the catch-all
		opts.Type = ""
	}
	if mtime := r.Header.Get("X-Content-MTime"); mtime != "" {
		if seconds, err := strconv.ParseInt(mtime, 10, 64); err == nil {
			opts.ModTime = time.Unix(seconds, 0).UTC()
		}
	}
	return opts
}

func putObject(w http.ResponseWriter, r *http.Request) {
	algorithm, ok := parseAlgorithm(w, r)
	if !ok {
		return
	}
	digest, ok := parseDigest(w, r, algorithm)
	if !ok {
		return
	}
	if len(digest.Value) != hashing.Size(algorithm) {
		http.Error(w, "partial digest not allowed on PUT", http.StatusBadRequest)
		return
	}

	opts := addOptionsFromRequest(r)
	opts.Assert = &digest

	object, err := lstore.Add(r.Body, opts)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	reply(w, r, object)
}

func postObject(w http.ResponseWriter, r *http.Request) {
	object, err := lstore.Add(r.Body, addOptionsFromRequest(r))
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	w.WriteHeader(http.StatusCreated)
	reply(w, r, object)
}

// postUpload stores the first file part of a multipart form.
func postUpload(w http.ResponseWriter, r *http.Request) {
	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if part.FileName() == "" {
			continue
		}
		opts := &storage.AddOptions{Type: part.Header.Get("Content-Type")}
		object, err := lstore.Add(part, opts)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		w.WriteHeader(http.StatusCreated)
		reply(w, r, object)
		return
	}
	http.Error(w, "no file part in form", http.StatusBadRequest)
}

func deleteObject(w http.ResponseWriter, r *http.Request) {
	algorithm, ok := parseAlgorithm(w, r)
	if !ok {
		return
	}
	digest, ok := parseDigest(w, r, algorithm)
	if !ok {
		return
	}

	primaryDigest := digest.Value
	if algorithm != lstore.Configuration().Primary {
		object, err := lstore.Get(algorithm, digest.Value)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		primaryDigest = object.Digest(lstore.Configuration().Primary)
	}

	if r.URL.Query().Get("forget") != "" {
		forgotten, err := lstore.Forget(primaryDigest)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		if !forgotten {
			http.Error(w, "object not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	object, err := lstore.Remove(primaryDigest)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	reply(w, r, object)
}

type patchRequest struct {
	Type     *string `json:"type,omitempty" msgpack:"type,omitempty"`
	Language *string `json:"language,omitempty" msgpack:"language,omitempty"`
	Charset  *string `json:"charset,omitempty" msgpack:"charset,omitempty"`
	Encoding *string `json:"encoding,omitempty" msgpack:"encoding,omitempty"`
	MTime    *int64  `json:"mtime,omitempty" msgpack:"mtime,omitempty"`
}

func patchObject(w http.ResponseWriter, r *http.Request) {
	algorithm, ok := parseAlgorithm(w, r)
	if !ok {
		return
	}
	digest, ok := parseDigest(w, r, algorithm)
	if !ok {
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	primaryDigest := digest.Value
	if algorithm != lstore.Configuration().Primary {
		object, err := lstore.Get(algorithm, digest.Value)
		if err != nil {
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		primaryDigest = object.Digest(lstore.Configuration().Primary)
	}

	opts := &storage.PatchOptions{
		Type:     req.Type,
		Language: req.Language,
		Charset:  req.Charset,
		Encoding: req.Encoding,
	}
	if req.MTime != nil {
		mtime := time.Unix(*req.MTime, 0).UTC()
		opts.ModTime = &mtime
	}

	object, err := lstore.Patch(primaryDigest, opts)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	reply(w, r, object)
}

func listObjects(w http.ResponseWriter, r *http.Request) {
	if _, ok := parseAlgorithm(w, r); !ok {
		return
	}

	opts := &objects.ListOptions{}
	query := r.URL.Query()

	sortKeys, err := objects.ParseObjectSortKeys(query.Get("sort"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts.SortKeys = sortKeys
	opts.Reverse = query.Get("reverse") != ""
	if offset := query.Get("offset"); offset != "" {
		if opts.Offset, err = strconv.Atoi(offset); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if limit := query.Get("limit"); limit != "" {
		if opts.Limit, err = strconv.Atoi(limit); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	for _, field := range []string{"Type", "Language", "Charset", "Encoding"} {
		if value := query.Get(field); value != "" {
			opts.Filters = append(opts.Filters, objects.Filter{Field: field, Value: value})
		}
	}

	ret, err := lstore.List(opts)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	reply(w, r, ret)
}

// apiList is the machine endpoint: a full ListOptions in msgpack in,
// objects in msgpack out.
func apiList(w http.ResponseWriter, r *http.Request) {
	var opts objects.ListOptions
	if err := msgpack.NewDecoder(r.Body).Decode(&opts); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ret, err := lstore.List(&opts)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	if err := msgpack.NewEncoder(w).Encode(ret); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func NewRouter(store *storage.Store) *mux.Router {
	lstore = store

	r := mux.NewRouter()
	r.HandleFunc("/", getStats).Methods("GET")
	r.HandleFunc("/", postObject).Methods("POST")
	r.HandleFunc("/upload", postUpload).Methods("POST")
	r.HandleFunc("/api/list", apiList).Methods("POST")
	r.HandleFunc("/{algorithm}/", listObjects).Methods("GET")
	r.HandleFunc("/{algorithm}/{digest}", getObject).Methods("GET", "HEAD")
	r.HandleFunc("/{algorithm}/{digest}", putObject).Methods("PUT")
	r.HandleFunc("/{algorithm}/{digest}", deleteObject).Methods("DELETE")
	r.HandleFunc("/{algorithm}/{digest}", patchObject).Methods("PATCH")
	return r
}

func Server(store *storage.Store, addr string) error {
	logging.Info("httpd: listening on %s", addr)
	return http.ListenAndServe(addr, NewRouter(store))
}
