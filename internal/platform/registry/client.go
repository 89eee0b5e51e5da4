// Package registry looks up hospital metadata in the external hospital
// registry. The importer only needs one operation: resolving the 3-letter
// hospital initials for a sentinel hospital code by hospital, department and
// date.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client is an HTTP client for the hospital registry with a small in-memory
// cache. Lookups are keyed by hospital, department and calendar day, since
// department assignments change at day granularity.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	cache map[cacheKey]string
}

type cacheKey struct {
	hospital   string
	department string
	day        string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   make(map[cacheKey]string),
	}
}

type initialsResponse struct {
	Initials string `json:"initials"`
}

// ResolveInitials returns the hospital initials valid for the given
// department on the given date.
func (c *Client) ResolveInitials(ctx context.Context, hospitalCode, departmentCode string, asOf time.Time) (string, error) {
	key := cacheKey{hospital: hospitalCode, department: departmentCode, day: asOf.Format("2006-01-02")}

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	reqURL := fmt.Sprintf("%s/hospitals/%s/departments/%s/initials?date=%s",
		c.baseURL, url.PathEscape(hospitalCode), url.PathEscape(departmentCode), key.day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("no initials registered for %s/%s on %s", hospitalCode, departmentCode, key.day)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry lookup: unexpected status %d", resp.StatusCode)
	}

	var body initialsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode registry response: %w", err)
	}

	initials := strings.ToUpper(strings.TrimSpace(body.Initials))
	if len(initials) != 3 {
		return "", fmt.Errorf("registry returned %q, want 3-letter initials", body.Initials)
	}

	c.mu.Lock()
	c.cache[key] = initials
	c.mu.Unlock()
	return initials, nil
}
