// Package httpx is the shared HTTP helper for every outbound API call:
// fixed timeouts, JSON decoding, and a single error type carrying a
// truncated response body for diagnostics. No retries happen here; retry
// policy, if any, belongs to the caller.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	connectTimeout = 5 * time.Second
	readTimeout    = 20 * time.Second

	// maxBodyExcerpt caps how much of a failed response we keep around.
	maxBodyExcerpt = 500
)

// Error is the single failure type for transport errors, non-2xx
// statuses, and bodies that fail to decode as JSON.
type Error struct {
	URL    string
	Status int    // 0 for transport failures
	Body   string // truncated to maxBodyExcerpt
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("httpx: %s returned %d: %s", e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("httpx: request to %s failed: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var defaultClient = &http.Client{
	Timeout: readTimeout,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: connectTimeout,
	},
}

// Truncate shortens a response body for inclusion in an Error.
func Truncate(s string) string {
	if len(s) > maxBodyExcerpt {
		return s[:maxBodyExcerpt]
	}
	return s
}

// GetJSON issues a GET with the given query params and headers and
// decodes the JSON response into out. out may be nil to discard the body.
func GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, out any) error {
	u := rawURL
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		u = rawURL + sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{URL: rawURL, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return do(req, rawURL, out)
}

// PostFormJSON issues a form-encoded POST and decodes the JSON response
// into out.
func PostFormJSON(ctx context.Context, rawURL string, data url.Values, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return do(req, rawURL, out)
}

// PostJSON issues a JSON-body POST and decodes the JSON response into out.
func PostJSON(ctx context.Context, rawURL string, body any, headers map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(string(payload)))
	if err != nil {
		return &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return do(req, rawURL, out)
}

func do(req *http.Request, rawURL string, out any) error {
	resp, err := defaultClient.Do(req)
	if err != nil {
		return &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{URL: rawURL, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{URL: rawURL, Status: resp.StatusCode, Body: Truncate(string(body))}
	}

	if out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{URL: rawURL, Status: resp.StatusCode, Body: Truncate(string(body)), Err: err}
	}

	return nil
}
