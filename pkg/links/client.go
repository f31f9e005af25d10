package links

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MethodGetLinkedData is the JSON-RPC method a remote engine exposes for
// link dereferencing.
const MethodGetLinkedData = "vaults.linked.get_linked_data"

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int         `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int             `json:"id"`
}

// Client calls a remote engine's JSON-RPC endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds a client for the given origin, e.g. "https://engine:8000".
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Call performs one JSON-RPC 2.0 round trip.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// GetLinkedData dereferences an entry against the remote engine. A response
// that carries no result is a failed resolution.
func (c *Client) GetLinkedData(ctx context.Context, entry Entry) (json.RawMessage, error) {
	result, err := c.Call(ctx, MethodGetLinkedData, map[string]interface{}{
		"linkEntry": entry,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteResolutionFailed, err)
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, fmt.Errorf("%w: empty result from %s", ErrRemoteResolutionFailed, c.url)
	}
	return result, nil
}
