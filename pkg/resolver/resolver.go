// Package resolver dereferences link entries. Local links are resolved by
// opening the target vault through the registered storage credentials and
// wallet; links carrying a remote URL are forwarded to that engine's
// JSON-RPC endpoint.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// ErrHashMismatch reports content that no longer matches a link's pin.
var ErrHashMismatch = errors.New("resolver: content hash does not match link pin")

// RemoteClient is the outbound JSON-RPC surface, satisfied by links.Client
// and replaced by fakes in tests.
type RemoteClient interface {
	GetLinkedData(ctx context.Context, entry links.Entry) (json.RawMessage, error)
}

// Resolver implements vault.Resolver over a storage registry and a wallet
// registry.
type Resolver struct {
	storages  *storage.Registry
	wallets   *wallet.Registry
	log       *logrus.Logger
	newClient func(url string) RemoteClient
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithLogger(log *logrus.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithClientFactory overrides how remote clients are built; tests use it to
// stub the network.
func WithClientFactory(f func(url string) RemoteClient) Option {
	return func(r *Resolver) { r.newClient = f }
}

func New(storages *storage.Registry, wallets *wallet.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		storages: storages,
		wallets:  wallets,
		log:      logrus.New(),
		newClient: func(url string) RemoteClient {
			return links.NewClient(url)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetLinkedData dereferences one entry. Revision-pinned links read the
// snapshot for that revision, never the live document.
func (r *Resolver) GetLinkedData(ctx context.Context, entry links.Entry) (json.RawMessage, error) {
	if entry.RemoteURL != "" {
		return r.resolveRemote(ctx, entry)
	}
	return r.resolveLocal(ctx, entry)
}

func (r *Resolver) resolveRemote(ctx context.Context, entry links.Entry) (json.RawMessage, error) {
	client := r.newClient(entry.RemoteURL)

	// The far engine resolves against its own storage; forwarding the URL
	// along would bounce the request back out.
	forwarded := entry
	forwarded.RemoteURL = ""

	result, err := client.GetLinkedData(ctx, forwarded)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Resolver) resolveLocal(ctx context.Context, entry links.Entry) (json.RawMessage, error) {
	driver, err := r.storages.Get(entry.RemoteStorage)
	if err != nil {
		return nil, err
	}
	w, err := r.wallets.Get(ctx, entry.RemoteWallet)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(entry.RemoteVault)
	if err != nil {
		return nil, fmt.Errorf("%w: bad vault id %q", links.ErrMalformedLink, entry.RemoteVault)
	}

	v := vault.New(driver, id, vault.WithLogger(r.log), vault.WithResolver(r))
	if err := v.LoadMetadata(ctx); err != nil {
		return nil, err
	}

	var content json.RawMessage
	if entry.Revision != nil {
		content, err = v.GetHistoricalDataBySequence(ctx, w, entry.Container, *entry.Revision, entry.SubFile)
	} else {
		content, err = v.GetContainerContent(ctx, w, entry.Container, entry.SubFile)
	}
	if err != nil {
		return nil, err
	}

	if entry.Hash != "" && crypt.HashBytes(content).Hex() != entry.Hash {
		return nil, fmt.Errorf("%w: %s", ErrHashMismatch, entry.String())
	}
	return content, nil
}
