package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/logging"
)

type stubResolver struct {
	content json.RawMessage
	err     error
	last    links.Entry
}

func (s *stubResolver) GetLinkedData(_ context.Context, entry links.Entry) (json.RawMessage, error) {
	s.last = entry
	return s.content, s.err
}

func testEntry() links.Entry {
	return links.Entry{
		RemoteVault:   uuid.NewString(),
		RemoteStorage: uuid.NewString(),
		RemoteWallet:  uuid.NewString(),
		Container:     "Document",
	}
}

func post(t *testing.T, srv *Server, body string) rpcResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetLinkedDataWithStructuredEntry(t *testing.T) {
	resolver := &stubResolver{content: json.RawMessage(`{"fields":{"name":"bol.pdf"}}`)}
	srv := New(resolver, WithLogger(logging.Discard()))

	entry := testEntry()
	params, err := json.Marshal(map[string]any{"linkEntry": entry})
	require.NoError(t, err)

	resp := post(t, srv, fmt.Sprintf(`{"jsonrpc":"2.0","method":%q,"params":%s,"id":1}`,
		links.MethodGetLinkedData, params))
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"fields":{"name":"bol.pdf"}}`, string(resp.Result))
	assert.Equal(t, entry.RemoteVault, resolver.last.RemoteVault)
}

func TestGetLinkedDataWithLinkString(t *testing.T) {
	resolver := &stubResolver{content: json.RawMessage(`{}`)}
	srv := New(resolver, WithLogger(logging.Discard()))

	entry := testEntry()
	resp := post(t, srv, fmt.Sprintf(`{"jsonrpc":"2.0","method":%q,"params":{"linkEntry":%q},"id":1}`,
		links.MethodGetLinkedData, entry.String()))
	require.Nil(t, resp.Error)
	assert.Equal(t, entry.Container, resolver.last.Container)
}

func TestUnknownMethodRejected(t *testing.T) {
	srv := New(&stubResolver{}, WithLogger(logging.Discard()))

	resp := post(t, srv, `{"jsonrpc":"2.0","method":"vaults.create","params":{},"id":1}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMissingLinkEntryRejected(t *testing.T) {
	srv := New(&stubResolver{}, WithLogger(logging.Discard()))

	resp := post(t, srv, fmt.Sprintf(`{"jsonrpc":"2.0","method":%q,"params":{},"id":1}`,
		links.MethodGetLinkedData))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestResolverFailureBecomesRPCError(t *testing.T) {
	resolver := &stubResolver{err: fmt.Errorf("vault is gone")}
	srv := New(resolver, WithLogger(logging.Discard()))

	params, err := json.Marshal(map[string]any{"linkEntry": testEntry()})
	require.NoError(t, err)
	resp := post(t, srv, fmt.Sprintf(`{"jsonrpc":"2.0","method":%q,"params":%s,"id":1}`,
		links.MethodGetLinkedData, params))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInternalError, resp.Error.Code)
}

func TestGetRequestsRejected(t *testing.T) {
	srv := New(&stubResolver{}, WithLogger(logging.Discard()))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// The wire format must line up with what the outbound client sends.
func TestClientServerRoundTrip(t *testing.T) {
	resolver := &stubResolver{content: json.RawMessage(`{"fields":{"sku":"SKU-1"}}`)}
	srv := httptest.NewServer(New(resolver, WithLogger(logging.Discard())))
	defer srv.Close()

	client := links.NewClient(srv.URL)
	content, err := client.GetLinkedData(context.Background(), testEntry())
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"sku":"SKU-1"}}`, string(content))
}
