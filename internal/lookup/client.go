// Package lookup provides a client for the remote name-resolution service.
//
// The service maps human aliases to network addresses and back:
//
//	GET {base}/name/{alias}   -> {"addr": "0x<address>"}
//	GET {base}/addr/{address} -> {"name": "<alias>"} or {"name": null}
//
// Unreachable endpoints and malformed answers resolve to the empty string.
// Certificate validation is relaxed by default: the service commonly runs
// with a self-signed certificate.
package lookup

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/logging"
)

// Resolver is what the session and setup flows need from the service.
type Resolver interface {
	// ResolveName maps an alias to a network address ("" when unknown).
	ResolveName(ctx context.Context, alias string) string
	// ResolveAddress maps a network address to an alias ("" when unknown).
	ResolveAddress(ctx context.Context, address string) string
}

// Client is a lookup service client
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logging.Logger
}

// Compile-time check: *Client implements Resolver.
var _ Resolver = (*Client)(nil)

// NewClient creates a client for baseURL. A base without a scheme is
// reached over https.
func NewClient(baseURL string, cfg config.LookupConfig) *Client {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec

	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		log: logging.Component("lookup"),
	}
}

// NormalizeBaseURL prefixes https:// when base does not start with "http"
// and drops a trailing slash.
func NormalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if !strings.HasPrefix(base, "http") {
		base = "https://" + base
	}
	return strings.TrimRight(base, "/")
}

type nameResponse struct {
	Addr *string `json:"addr"`
}

type addrResponse struct {
	Name *string `json:"name"`
}

func (c *Client) ResolveName(ctx context.Context, alias string) string {
	var resp nameResponse
	if !c.get(ctx, "/name/"+url.PathEscape(alias), &resp).OK() || resp.Addr == nil {
		return ""
	}
	addr := strings.TrimPrefix(*resp.Addr, "0x")
	if addr == *resp.Addr && strings.HasPrefix(addr, "ring:") {
		addr = strings.TrimPrefix(addr, "ring:")
	}
	return addr
}

func (c *Client) ResolveAddress(ctx context.Context, address string) string {
	var resp addrResponse
	if !c.get(ctx, "/addr/"+url.PathEscape(address), &resp).OK() || resp.Name == nil {
		return ""
	}
	return *resp.Name
}

// get performs one GET and decodes the JSON body into out. Every failure
// collapses into None.
func (c *Client) get(ctx context.Context, path string, out interface{}) core.Result[struct{}] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		c.log.Warn("build request %s: %v", path, err)
		return core.None[struct{}]()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("GET %s: %v", path, err)
		return core.None[struct{}]()
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		c.log.Warn("read %s: %v", path, err)
		return core.None[struct{}]()
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.Debug("GET %s: %v", path, fmt.Errorf("malformed answer (status %d): %w", resp.StatusCode, err))
		return core.None[struct{}]()
	}
	return core.Some(struct{}{})
}
