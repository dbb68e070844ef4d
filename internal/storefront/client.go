package storefront

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gamedex/gamedex/internal/ratelimit"
	"github.com/gamedex/gamedex/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

// Client is the storefront-side HTTP transport: every request passes
// through the storefront's rate gate and response bodies are shape-checked
// before parsing. Retry is not implemented here; that is the engine's job.
type Client struct {
	http   *http.Client
	gate   *ratelimit.Gate
	source string
}

// NewClient creates a transport for one storefront, gated by gate.
func NewClient(source string, gate *ratelimit.Gate) *Client {
	return &Client{
		http:   &http.Client{Timeout: defaultHTTPTimeout},
		gate:   gate,
		source: source,
	}
}

// WithHTTPClient swaps the underlying HTTP client. Used by tests to point
// the transport at a fake server.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Get issues a GET request and parses the body, which must be a JSON
// array when wantArray is set and a JSON object otherwise.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values, wantArray bool) (gjson.Result, error) {
	return c.do(ctx, http.MethodGet, rawURL, headers, params, nil, wantArray)
}

// PostForm issues a form-encoded POST request and parses the body the
// same way Get does.
func (c *Client) PostForm(ctx context.Context, rawURL string, headers map[string]string, form url.Values, wantArray bool) (gjson.Result, error) {
	return c.do(ctx, http.MethodPost, rawURL, headers, nil, form, wantArray)
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers map[string]string, params, form url.Values, wantArray bool) (gjson.Result, error) {
	var result gjson.Result
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		if len(params) > 0 {
			sep := "?"
			if strings.Contains(rawURL, "?") {
				sep = "&"
			}
			rawURL += sep + params.Encode()
		}

		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
		if err != nil {
			return errors.NewProtocolError(c.source, "building request", err)
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.NewProtocolError(c.source, "request failed", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.NewProtocolError(c.source, "reading response", err)
		}

		text := strings.TrimSpace(string(raw))
		switch {
		case wantArray && !strings.HasPrefix(text, "["):
			return errors.NewProtocolError(c.source, "did not return a JSON array: "+text, nil)
		case !wantArray && !strings.HasPrefix(text, "{"):
			return errors.NewProtocolError(c.source, "did not return a JSON object: "+text, nil)
		}
		result = gjson.Parse(text)
		return nil
	})
	return result, err
}
