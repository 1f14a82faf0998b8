package client

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/braidhq/braiddb/pkg/events"
	"github.com/braidhq/braiddb/pkg/types"
)

// Version is a wire-form document version, as returned by Put and carried
// in a ConflictEntry.
type Version = types.RemoteVersion

// DocEvent is a document change notification delivered by Watch.
type DocEvent = events.DocEvent

// ConflictEntry is one value of a document left in a conflicted state by
// concurrent writes.
type ConflictEntry struct {
	Version Version `json:"version"`
	Value   string  `json:"value"`
}

// ErrConflict is returned by Get when the document holds more than one
// concurrent value; call GetConflict to see every value.
type ErrConflict struct {
	Key string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("client: %q has concurrent values, use GetConflict", e.Key)
}

// Client wraps an HTTP connection to a braiddb server.
type Client struct {
	baseURL string
	http    *http.Client
	watch   *http.Client
}

// NewClient returns a Client talking to baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base URL %q must be absolute", baseURL)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		// Watch is long-lived by design; a blanket client timeout would cut
		// the stream off, so it relies solely on the caller's context.
		watch: &http.Client{},
	}, nil
}

// Get returns key's value. It returns *ErrConflict if the document
// currently holds more than one concurrent value.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/doc/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: getting %q: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("client: reading response: %w", err)
		}
		return body, nil
	case http.StatusConflict:
		return nil, &ErrConflict{Key: key}
	case http.StatusNotFound:
		return nil, fmt.Errorf("client: %q not found", key)
	default:
		return nil, fmt.Errorf("client: unexpected status %d getting %q", resp.StatusCode, key)
	}
}

// GetConflict returns every concurrent value of a conflicted document. It
// is an error to call it on a document that is not currently conflicted.
func (c *Client) GetConflict(ctx context.Context, key string) ([]ConflictEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/doc/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: getting %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		return nil, fmt.Errorf("client: %q is not conflicted (status %d)", key, resp.StatusCode)
	}

	var entries []ConflictEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("client: decoding conflict body: %w", err)
	}
	return entries, nil
}

// Put writes value to key and returns the version it was assigned.
func (c *Client) Put(ctx context.Context, key string, value []byte) (Version, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/doc/"+key, strings.NewReader(string(value)))
	if err != nil {
		return Version{}, fmt.Errorf("client: building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Version{}, fmt.Errorf("client: putting %q: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Version{}, fmt.Errorf("client: unexpected status %d putting %q", resp.StatusCode, key)
	}

	v, err := decodeVersion(resp.Header.Get("X-Braiddb-Version"))
	if err != nil {
		return Version{}, fmt.Errorf("client: decoding assigned version: %w", err)
	}
	return v, nil
}

// Watch streams document events for key until ctx is canceled or the
// connection drops. The returned channel is closed when watching stops;
// callers must drain it to avoid leaking the background reader.
func (c *Client) Watch(ctx context.Context, key string) (<-chan *DocEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/doc/"+key+"/watch", nil)
	if err != nil {
		return nil, fmt.Errorf("client: building request: %w", err)
	}

	resp, err := c.watch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: watching %q: %w", key, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("client: unexpected status %d watching %q", resp.StatusCode, key)
	}

	out := make(chan *DocEvent, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			var ev DocEvent
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				return
			}
			select {
			case out <- &ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// decodeVersion inverts pkg/api's encodeVersion: base64 of the agent
// string's bytes followed by the seq as a big-endian uint64.
func decodeVersion(s string) (Version, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid base64: %w", err)
	}
	if len(buf) < 8 {
		return Version{}, fmt.Errorf("too short: %d bytes", len(buf))
	}
	agent := string(buf[:len(buf)-8])
	seq := binary.BigEndian.Uint64(buf[len(buf)-8:])
	return Version{Agent: agent, Seq: seq}, nil
}
