// Package rpcserver exposes link resolution over JSON-RPC 2.0 so peer
// engines can dereference links into locally held vaults.
package rpcserver

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ShipChain/engine-sub001/pkg/vault"
)

type Server struct {
	mux      *http.ServeMux
	resolver vault.Resolver
	log      *logrus.Logger
}

type Option func(*Server)

func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log }
}

func New(resolver vault.Resolver, opts ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		resolver: resolver,
		log:      logrus.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRPC)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	s.mux.ServeHTTP(w, r)
}
