// Package client is a Go client for the hoard httpd API. Machine
// payloads travel as msgpack.
package client

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/poolpOrg/hoard/objects"
	"github.com/poolpOrg/hoard/storage"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}
}

func (c *Client) decodeError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	message := strings.TrimSpace(string(body))
	switch res.StatusCode {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusGone:
		return storage.ErrNoContent
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", storage.ErrDigestMismatch, message)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", storage.ErrTransactionAborted, message)
	default:
		return fmt.Errorf("server error %d: %s", res.StatusCode, message)
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/msgpack")
	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		defer res.Body.Close()
		return nil, c.decodeError(res)
	}
	return res, nil
}

func (c *Client) AddReader(rd io.Reader, contentType string) (*objects.Object, error) {
	req, err := http.NewRequest("POST", c.baseURL+"/", rd)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var object objects.Object
	if err := msgpack.NewDecoder(res.Body).Decode(&object); err != nil {
		return nil, err
	}
	return &object, nil
}

func (c *Client) objectURL(algorithm string, digest []byte) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, algorithm, hex.EncodeToString(digest))
}

func (c *Client) Get(algorithm string, digest []byte) (*objects.Object, error) {
	req, err := http.NewRequest("GET", c.objectURL(algorithm, digest)+"?meta=1", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var object objects.Object
	if err := msgpack.NewDecoder(res.Body).Decode(&object); err != nil {
		return nil, err
	}
	return &object, nil
}

// GetPrefix resolves a partial digest to every matching object.
func (c *Client) GetPrefix(algorithm string, partial []byte) ([]*objects.Object, error) {
	req, err := http.NewRequest("GET", c.objectURL(algorithm, partial), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var ret []*objects.Object
	if err := msgpack.NewDecoder(res.Body).Decode(&ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// OpenContent streams an object's bytes; the caller closes the reader.
func (c *Client) OpenContent(algorithm string, digest []byte) (io.ReadCloser, error) {
	req, err := http.NewRequest("GET", c.objectURL(algorithm, digest), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 400 {
		defer res.Body.Close()
		return nil, c.decodeError(res)
	}
	return res.Body, nil
}

func (c *Client) Remove(algorithm string, digest []byte) (*objects.Object, error) {
	req, err := http.NewRequest("DELETE", c.objectURL(algorithm, digest), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var object objects.Object
	if err := msgpack.NewDecoder(res.Body).Decode(&object); err != nil {
		return nil, err
	}
	return &object, nil
}

func (c *Client) Forget(algorithm string, digest []byte) error {
	req, err := http.NewRequest("DELETE", c.objectURL(algorithm, digest)+"?forget=1", nil)
	if err != nil {
		return err
	}
	res, err := c.do(req)
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

func (c *Client) Stats() (*objects.Stats, error) {
	req, err := http.NewRequest("GET", c.baseURL+"/", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var stats objects.Stats
	if err := msgpack.NewDecoder(res.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) List(opts *objects.ListOptions) ([]*objects.Object, error) {
	if opts == nil {
		opts = &objects.ListOptions{}
	}
	payload, err := msgpack.Marshal(opts)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest("POST", c.baseURL+"/api/list", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/msgpack")
	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var ret []*objects.Object
	if err := msgpack.NewDecoder(res.Body).Decode(&ret); err != nil {
		return nil, err
	}
	return ret, nil
}
