// Package indexer is an HTTP client for the remote TRD indexing service.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/go-playground/validator/v10"
)

// DefaultTimeout bounds a single indexer request.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 << 20

// ErrInvalidResponse is returned when a response is missing required fields
// or cannot be decoded.
var ErrInvalidResponse = errors.New("invalid indexer response")

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("indexer http %d: %s", e.StatusCode, e.Body)
}

// Client talks to an indexer at <base>/api/.
type Client struct {
	base     string
	http     *http.Client
	validate *validator.Validate
}

// New creates a client for baseURL with the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// BaseURL returns the indexer base URL.
func (c *Client) BaseURL() string {
	return c.base
}

// Height fetches the current chain height.
func (c *Client) Height(ctx context.Context) (int64, error) {
	var resp HeightResponse
	if err := c.get(ctx, "height", &resp); err != nil {
		return 0, err
	}
	return *resp.Height, nil
}

// Address fetches the indexer's view of one address.
func (c *Client) Address(ctx context.Context, address string) (*AddressResponse, error) {
	var resp AddressResponse
	if err := c.get(ctx, "address/"+url.PathEscape(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Transaction fetches the details of txid.
func (c *Client) Transaction(ctx context.Context, txid string) (*TransactionResponse, error) {
	var resp TransactionResponse
	if err := c.get(ctx, "transaction/"+url.PathEscape(txid), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Spend submits a transaction body for broadcast.
func (c *Client) Spend(ctx context.Context, body SpendRequest) (*SpendResponse, error) {
	var resp SpendResponse
	if err := c.post(ctx, "spend", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/"+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/"+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	log.Indexer.Trace().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Indexer request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, req.URL.Path, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, req.URL.Path, err)
	}
	return nil
}
