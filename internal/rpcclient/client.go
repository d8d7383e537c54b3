// Package rpcclient provides a JSON-RPC 2.0 client for trdwalletd.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single call when no timeout is given.
const DefaultTimeout = 30 * time.Second

// Client is a JSON-RPC 2.0 HTTP client. It is safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Uint64
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, DefaultTimeout)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      uint64      `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      *uint64         `json:"id"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsCode reports whether err is an RPCError carrying code.
func IsCode(err error, code int) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided pointer.
// If result is nil, the response result is discarded.
func (c *Client) Call(method string, params, result interface{}) error {
	return c.CallContext(context.Background(), method, params, result)
}

// CallContext is like Call but aborts when ctx is done.
func (c *Client) CallContext(ctx context.Context, method string, params, result interface{}) error {
	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	}

	var resp response
	if err := c.post(ctx, req, &resp); err != nil {
		return err
	}
	if resp.ID != nil && *resp.ID != req.ID {
		return fmt.Errorf("response id %d does not match request id %d", *resp.ID, req.ID)
	}
	return decodeResult(resp, result)
}

// BatchCall is one call of a batch. After Batch returns, Err holds the
// call's own error, if any.
type BatchCall struct {
	Method string
	Params interface{}
	Result interface{}
	Err    error
}

// Batch sends calls in one HTTP request. The returned error covers transport
// and framing faults; per-call errors land in each BatchCall.Err.
func (c *Client) Batch(ctx context.Context, calls []*BatchCall) error {
	if len(calls) == 0 {
		return nil
	}
	reqs := make([]request, len(calls))
	byID := make(map[uint64]*BatchCall, len(calls))
	for i, call := range calls {
		reqs[i] = request{JSONRPC: "2.0", Method: call.Method, Params: call.Params, ID: c.nextID.Add(1)}
		byID[reqs[i].ID] = call
	}

	var resps []response
	if err := c.post(ctx, reqs, &resps); err != nil {
		return err
	}
	for _, resp := range resps {
		if resp.ID == nil {
			continue
		}
		call, ok := byID[*resp.ID]
		if !ok {
			continue
		}
		call.Err = decodeResult(resp, call.Result)
		delete(byID, *resp.ID)
	}
	for id, call := range byID {
		call.Err = fmt.Errorf("no response for request id %d", id)
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// A batch can fail as a whole with a single error object.
		var single response
		if json.Unmarshal(data, &single) == nil && single.Error != nil {
			return single.Error
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeResult(resp response, result interface{}) error {
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
