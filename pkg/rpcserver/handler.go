package rpcserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ShipChain/engine-sub001/pkg/links"
)

var errMissingLinkEntry = errors.New("params must carry a linkEntry")

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *links.RPCError `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// linkedDataParams accepts both a structured entry and a raw link string.
type linkedDataParams struct {
	LinkEntry json.RawMessage `json:"linkEntry"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, nil, codeParseError, "parse error")
		return
	}
	if req.JSONRPC != "2.0" {
		s.writeError(w, req.ID, codeInvalidRequest, "jsonrpc must be 2.0")
		return
	}

	switch req.Method {
	case links.MethodGetLinkedData:
		s.handleGetLinkedData(w, r, req)
	default:
		s.writeError(w, req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleGetLinkedData(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	entry, err := decodeLinkEntry(req.Params)
	if err != nil {
		s.writeError(w, req.ID, codeInvalidParams, err.Error())
		return
	}

	content, err := s.resolver.GetLinkedData(r.Context(), entry)
	if err != nil {
		s.log.WithError(err).WithField("vault", entry.RemoteVault).Warn("link resolution failed")
		s.writeError(w, req.ID, codeInternalError, err.Error())
		return
	}

	s.writeResult(w, req.ID, content)
}

func decodeLinkEntry(params json.RawMessage) (links.Entry, error) {
	var wrapper linkedDataParams
	if err := json.Unmarshal(params, &wrapper); err != nil || len(wrapper.LinkEntry) == 0 {
		return links.Entry{}, errMissingLinkEntry
	}

	// A string param is a raw link; anything else is a structured entry.
	var raw string
	if err := json.Unmarshal(wrapper.LinkEntry, &raw); err == nil {
		return links.Parse(raw)
	}
	var entry links.Entry
	if err := json.Unmarshal(wrapper.LinkEntry, &entry); err != nil {
		return links.Entry{}, err
	}
	if strings.TrimSpace(entry.RemoteVault) == "" {
		return links.Entry{}, errMissingLinkEntry
	}
	return entry, nil
}

func (s *Server) writeResult(w http.ResponseWriter, id json.RawMessage, result json.RawMessage) {
	s.writeResponse(w, rpcResponse{JSONRPC: "2.0", Result: result, ID: id})
}

func (s *Server) writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	s.writeResponse(w, rpcResponse{
		JSONRPC: "2.0",
		Error:   &links.RPCError{Code: code, Message: message},
		ID:      id,
	})
}

func (s *Server) writeResponse(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.WithError(err).Error("failed to write rpc response")
	}
}
