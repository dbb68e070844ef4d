// Package igdb talks to the IGDB canonical catalog through an
// authenticating proxy. Client wraps the raw APIcalypse transport behind
// the rate gate; Resolver turns maps of storefront identifiers into
// normalized game records in bulk.
package igdb

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gamedex/gamedex/internal/ratelimit"
	"github.com/gamedex/gamedex/pkg/errors"
)

// DefaultBaseURL is the IGDB proxy endpoint queries are posted to.
const DefaultBaseURL = "https://igdbproxy.shanjiang.ca/igdb"

const defaultHTTPTimeout = 30 * time.Second

// Client issues APIcalypse queries to the catalog. All requests pass
// through the gate, so they are serialized and spaced; no retry happens at
// this layer.
type Client struct {
	http     *http.Client
	gate     *ratelimit.Gate
	baseURL  string
	clientID string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the catalog proxy URL.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a catalog client gated by gate.
func NewClient(gate *ratelimit.Gate, clientID string, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: defaultHTTPTimeout},
		gate:     gate,
		baseURL:  DefaultBaseURL,
		clientID: clientID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query posts an APIcalypse body to the given endpoint (games,
// external_games, websites, genres) and returns the parsed response array.
//
// A response that is not a JSON array is a protocol error, except for
// bodies carrying a recognizable rate-limit or forbidden marker, which
// surface as APIErrors with the corresponding status.
func (c *Client) Query(ctx context.Context, endpoint, body string) (gjson.Result, error) {
	var result gjson.Result
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, strings.NewReader(body))
		if err != nil {
			return errors.NewProtocolError("IGDB", "building request", err)
		}
		req.Header.Set("Client-ID", c.clientID)
		req.Header.Set("Content-Type", "text/plain")
		req.Header.Set("Connection", "keep-alive")

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.NewProtocolError("IGDB", "request failed", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.NewProtocolError("IGDB", "reading response", err)
		}

		text := strings.TrimSpace(string(raw))
		if !strings.HasPrefix(text, "[") {
			if strings.Contains(text, "429") {
				return errors.NewAPIError("IGDB", 429, "Too Many Requests")
			}
			if strings.Contains(text, "Forbidden") {
				return errors.NewAPIError("IGDB", 403, "Forbidden")
			}
			return errors.NewProtocolError("IGDB", "did not return a JSON array: "+text, nil)
		}
		result = gjson.Parse(text)
		return nil
	})
	return result, err
}
