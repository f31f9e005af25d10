// Package engine bundles the vault, wallet, and link-resolution layers into
// one process-wide facade. Callers register storage credentials, create or
// open vaults through them, and hand the RPC handler to an HTTP server to
// serve link resolution to peers.
package engine

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShipChain/engine-sub001/pkg/logging"
	"github.com/ShipChain/engine-sub001/pkg/primitives"
	"github.com/ShipChain/engine-sub001/pkg/resolver"
	"github.com/ShipChain/engine-sub001/pkg/rpcserver"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// Config configures an Engine instance.
type Config struct {
	// WalletDriver backs the wallet registry. If nil, wallets live in
	// memory and are lost on restart.
	WalletDriver storage.Driver
	// Logger is an optional structured logger. If nil, a stderr logger at
	// info level is used.
	Logger *logrus.Logger
	// MaxLinkDepth bounds link resolution passes. If 0, the default bound
	// applies.
	MaxLinkDepth int
}

type Engine struct {
	storages   *storage.Registry
	wallets    *wallet.Registry
	resolver   *resolver.Resolver
	primitives *primitives.Factory
	log        *logrus.Logger
}

func New(conf Config) (*Engine, error) {
	log := conf.Logger
	if log == nil {
		log = logging.New("info")
	}
	walletDriver := conf.WalletDriver
	if walletDriver == nil {
		walletDriver = storage.NewMemoryDriver()
	}

	storages := storage.NewRegistry()
	wallets := wallet.NewRegistry(walletDriver)
	res := resolver.New(storages, wallets, resolver.WithLogger(log))

	var factoryOpts []primitives.FactoryOption
	if conf.MaxLinkDepth > 0 {
		factoryOpts = append(factoryOpts, primitives.WithMaxDepth(conf.MaxLinkDepth))
	}

	return &Engine{
		storages:   storages,
		wallets:    wallets,
		resolver:   res,
		primitives: primitives.NewFactory(primitives.NewRegistry(), res, factoryOpts...),
		log:        log,
	}, nil
}

// RegisterStorage makes a storage credential available for vault access and
// link resolution.
func (e *Engine) RegisterStorage(id string, d storage.Driver) {
	e.storages.Register(id, d)
}

func (e *Engine) Wallets() *wallet.Registry {
	return e.wallets
}

func (e *Engine) Primitives() *primitives.Factory {
	return e.primitives
}

func (e *Engine) Resolver() vault.Resolver {
	return e.resolver
}

// CreateVault initializes a fresh vault under a registered storage
// credential with the author as the first owner.
func (e *Engine) CreateVault(ctx context.Context, storageID string, author *wallet.Wallet) (*vault.Vault, error) {
	driver, err := e.storages.Get(storageID)
	if err != nil {
		return nil, err
	}
	v := vault.New(driver, uuid.New(), vault.WithLogger(e.log), vault.WithResolver(e.resolver))
	if err := v.InitializeMetadata(ctx, author); err != nil {
		return nil, err
	}
	if _, err := v.WriteMetadata(ctx, author); err != nil {
		return nil, err
	}
	return v, nil
}

// OpenVault loads an existing vault's metadata.
func (e *Engine) OpenVault(ctx context.Context, storageID string, id uuid.UUID) (*vault.Vault, error) {
	driver, err := e.storages.Get(storageID)
	if err != nil {
		return nil, err
	}
	v := vault.New(driver, id, vault.WithLogger(e.log), vault.WithResolver(e.resolver))
	if err := v.LoadMetadata(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// RPCHandler serves link resolution over JSON-RPC for peer engines.
func (e *Engine) RPCHandler() http.Handler {
	return rpcserver.New(e.resolver, rpcserver.WithLogger(e.log))
}
