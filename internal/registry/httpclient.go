package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"
)

// HTTPClient is a Registry client against a remote registry server. Repeated
// lookups within a short TTL are answered from a per-process cache, and
// concurrent identical lookups are coalesced.
type HTTPClient struct {
	base   string
	client *http.Client

	mu        sync.RWMutex
	findCache map[string]findCacheEntry
	ttl       time.Duration
	sf        singleflight.Group
}

type findCacheEntry struct {
	at  time.Time
	id  ModuleID
	man Manifest
}

// NewHTTPClient creates a client for the registry at baseURL. Pass a custom
// http.Client (e.g. an HTTP/3 transport from HTTP3Client) or nil for a
// default HTTP/1.1+2 client.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		tr := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        64,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     120 * time.Second,
		}
		client = &http.Client{Transport: tr, Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		base:      strings.TrimRight(baseURL, "/"),
		client:    client,
		findCache: make(map[string]findCacheEntry),
		ttl:       30 * time.Second,
	}
}

func (c *HTTPClient) doWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := c.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		// backoff: 100ms, 200ms, 400ms
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return nil, lastErr
}

// Publish uploads a blob and returns its content address.
func (c *HTTPClient) Publish(ctx context.Context, blob Blob) (ModuleID, error) {
	body, err := json.Marshal(blob)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/publish", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doWithRetry(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("publish failed: %s", strings.TrimSpace(string(msg)))
	}
	var out struct {
		ID ModuleID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Fetch retrieves a blob by content address.
func (c *HTTPClient) Fetch(ctx context.Context, id ModuleID) (Blob, error) {
	u := c.base + "/fetch?id=" + url.QueryEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Blob{}, err
	}
	resp, err := c.doWithRetry(req)
	if err != nil {
		return Blob{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Blob{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return Blob{}, fmt.Errorf("fetch failed: %s", strings.TrimSpace(string(msg)))
	}
	var blob Blob
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return Blob{}, err
	}
	return blob, nil
}

// Find resolves the best version for a name and constraint.
func (c *HTTPClient) Find(ctx context.Context, name string, constraint *semver.Constraints) (ModuleID, Manifest, error) {
	key := name + "|"
	if constraint != nil {
		key += constraint.String()
	}

	c.mu.RLock()
	if e, ok := c.findCache[key]; ok && time.Since(e.at) < c.ttl {
		c.mu.RUnlock()
		return e.id, e.man, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.sf.Do("find:"+key, func() (interface{}, error) {
		q := url.Values{}
		q.Set("name", name)
		if constraint != nil {
			q.Set("constraint", constraint.String())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/find?"+q.Encode(), http.NoBody)
		if err != nil {
			return nil, err
		}
		resp, err := c.doWithRetry(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("find failed: %s", strings.TrimSpace(string(msg)))
		}
		var out findResult
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.findCache[key] = findCacheEntry{at: time.Now(), id: out.ID, man: out.Manifest}
		c.mu.Unlock()
		return out, nil
	})
	if err != nil {
		return "", Manifest{}, err
	}
	out := v.(findResult)
	return out.ID, out.Manifest, nil
}

// List returns all manifests for a name.
func (c *HTTPClient) List(ctx context.Context, name string) ([]Manifest, error) {
	u := c.base + "/list?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list failed: %s", strings.TrimSpace(string(msg)))
	}
	var out []Manifest
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Registry = (*HTTPClient)(nil)
var _ Registry = (*InMemoryRegistry)(nil)
