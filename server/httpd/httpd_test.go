package httpd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poolpOrg/hoard/objects"
	"github.com/poolpOrg/hoard/storage"
	_ "github.com/poolpOrg/hoard/storage/fs"
)

const helloSHA256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.Create(filepath.Join(t.TempDir(), "store"), storage.NewConfiguration())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	server := httptest.NewServer(NewRouter(store))
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})
	return server
}

func decodeObject(t *testing.T, res *http.Response) *objects.Object {
	t.Helper()
	defer res.Body.Close()
	var o objects.Object
	if err := json.NewDecoder(res.Body).Decode(&o); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return &o
}

func postContent(t *testing.T, server *httptest.Server, content string) *objects.Object {
	t.Helper()
	res, err := http.Post(server.URL+"/", "text/plain", strings.NewReader(content))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	return decodeObject(t, res)
}

func doRequest(t *testing.T, method string, url string, body string) *http.Response {
	t.Helper()
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	return res
}

func TestStats(t *testing.T) {
	server := newTestServer(t)
	postContent(t, server, "hello world")

	res, err := http.Get(server.URL + "/")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	var stats objects.Stats
	if err := json.NewDecoder(res.Body).Decode(&stats); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if stats.Objects != 1 || stats.Bytes != 11 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestPostAndGet(t *testing.T) {
	server := newTestServer(t)
	o := postContent(t, server, "hello world")
	if hex.EncodeToString(o.Digests["sha-256"]) != helloSHA256 {
		t.Fatalf("unexpected digest: %x", o.Digests["sha-256"])
	}

	res, err := http.Get(server.URL + "/sha-256/" + helloSHA256)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	buffer := &bytes.Buffer{}
	buffer.ReadFrom(res.Body)
	if buffer.String() != "hello world" {
		t.Errorf("unexpected content: %q", buffer.String())
	}
	if res.Header.Get("Content-Length") != "11" {
		t.Errorf("unexpected Content-Length: %s", res.Header.Get("Content-Length"))
	}

	// metadata view
	res, err = http.Get(server.URL + "/sha-256/" + helloSHA256 + "?meta=1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	meta := decodeObject(t, res)
	if meta.Size != 11 {
		t.Errorf("unexpected size: %d", meta.Size)
	}

	// secondary algorithm resolution
	res, err = http.Get(server.URL + "/md5/" + hex.EncodeToString(o.Digests["md5"]))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("unexpected status via md5: %d", res.StatusCode)
	}
}

func TestGetPrefixAndErrors(t *testing.T) {
	server := newTestServer(t)
	postContent(t, server, "hello world")

	// short digest is a prefix query and returns a listing
	res, err := http.Get(server.URL + "/sha-256/" + helloSHA256[:8])
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	var matches []*objects.Object
	if err := json.NewDecoder(res.Body).Decode(&matches); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}

	tests := []struct {
		name     string
		path     string
		expected int
	}{
		{"unknown digest", "/sha-256/" + strings.Repeat("00", 32), http.StatusNotFound},
		{"unknown algorithm", "/sha-512/" + helloSHA256, http.StatusNotFound},
		{"odd length digest", "/sha-256/abc", http.StatusBadRequest},
		{"over-long digest", "/sha-256/" + helloSHA256 + "aa", http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := http.Get(server.URL + test.path)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			res.Body.Close()
			if res.StatusCode != test.expected {
				t.Errorf("expected %d, got %d", test.expected, res.StatusCode)
			}
		})
	}
}

func TestPutAssert(t *testing.T) {
	server := newTestServer(t)

	res := doRequest(t, "PUT", server.URL+"/sha-256/"+helloSHA256, "hello world")
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	res.Body.Close()

	// wrong content for the claimed digest
	res = doRequest(t, "PUT", server.URL+"/sha-256/"+helloSHA256, "something else")
	if res.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", res.StatusCode)
	}
	res.Body.Close()

	// partial digest cannot be asserted
	res = doRequest(t, "PUT", server.URL+"/sha-256/"+helloSHA256[:8], "hello world")
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", res.StatusCode)
	}
	res.Body.Close()
}

func TestDeleteAndGone(t *testing.T) {
	server := newTestServer(t)
	postContent(t, server, "hello world")

	res := doRequest(t, "DELETE", server.URL+"/sha-256/"+helloSHA256, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	o := decodeObject(t, res)
	if o.DTime.IsZero() {
		t.Error("removed object carries no dtime")
	}

	// content is gone, metadata survives
	res, err := http.Get(server.URL + "/sha-256/" + helloSHA256)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusGone {
		t.Errorf("expected 410, got %d", res.StatusCode)
	}
	res, err = http.Get(server.URL + "/sha-256/" + helloSHA256 + "?meta=1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200 on metadata, got %d", res.StatusCode)
	}
}

func TestDeleteForget(t *testing.T) {
	server := newTestServer(t)
	postContent(t, server, "hello world")

	res := doRequest(t, "DELETE", server.URL+"/sha-256/"+helloSHA256+"?forget=1", "")
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	res.Body.Close()

	res, err := http.Get(server.URL + "/sha-256/" + helloSHA256 + "?meta=1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after forget, got %d", res.StatusCode)
	}

	res = doRequest(t, "DELETE", server.URL+"/sha-256/"+helloSHA256+"?forget=1", "")
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 forgetting twice, got %d", res.StatusCode)
	}
}

func TestPatch(t *testing.T) {
	server := newTestServer(t)
	postContent(t, server, "hello world")

	res := doRequest(t, "PATCH", server.URL+"/sha-256/"+helloSHA256, `{"language":"en"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	o := decodeObject(t, res)
	if o.Language != "en" {
		t.Errorf("patch not applied: %+v", o)
	}
	if o.PTime.IsZero() {
		t.Error("ptime not set")
	}
}

func TestListObjects(t *testing.T) {
	server := newTestServer(t)
	postContent(t, server, "hello world")
	postContent(t, server, "goodbye")

	res, err := http.Get(server.URL + "/sha-256/?sort=-Size&limit=1")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	var ret []*objects.Object
	if err := json.NewDecoder(res.Body).Decode(&ret); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(ret) != 1 || ret[0].Size != 11 {
		t.Errorf("unexpected listing: %+v", ret)
	}
}

func TestUpload(t *testing.T) {
	server := newTestServer(t)

	buffer := &bytes.Buffer{}
	form := multipart.NewWriter(buffer)
	part, err := form.CreateFormFile("file", "hello.txt")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	fmt.Fprint(part, "hello world")
	form.Close()

	res, err := http.Post(server.URL+"/upload", form.FormDataContentType(), buffer)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", res.StatusCode)
	}
	o := decodeObject(t, res)
	if hex.EncodeToString(o.Digests["sha-256"]) != helloSHA256 {
		t.Errorf("unexpected digest: %x", o.Digests["sha-256"])
	}
}
