// Package wallet holds the signing/decryption identities the engine acts
// with. A Registry persists key material through a storage driver so the
// link resolver can load the wallet a link names.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/storage"
)

var ErrWalletNotFound = errors.New("wallet: not found")

// Wallet is an identity: a stable id plus the keypair behind it.
type Wallet struct {
	ID      uuid.UUID
	Keypair *crypt.Keypair
}

// Generate creates a wallet with a fresh keypair.
func Generate() (*Wallet, error) {
	kp, err := crypt.NewKeypair()
	if err != nil {
		return nil, err
	}
	return &Wallet{ID: uuid.New(), Keypair: kp}, nil
}

// PublicKey returns the wallet's shareable identity string, the form vault
// role lists carry.
func (w *Wallet) PublicKey() string {
	return w.Keypair.Public().Hex()
}

type walletRecord struct {
	ID         string `json:"id"`
	PrivateKey string `json:"private_key"`
}

// Registry is an id-addressed wallet store. Loaded wallets are cached; the
// persisted form goes through the configured storage driver.
type Registry struct {
	mu      sync.RWMutex
	driver  storage.Driver
	wallets map[string]*Wallet
}

func NewRegistry(driver storage.Driver) *Registry {
	return &Registry{
		driver:  driver,
		wallets: make(map[string]*Wallet),
	}
}

func walletPath(id string) string {
	return "wallets/" + id + ".json"
}

// Add caches and persists a wallet.
func (r *Registry) Add(ctx context.Context, w *Wallet) error {
	record := walletRecord{
		ID:         w.ID.String(),
		PrivateKey: w.Keypair.Export(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal wallet %s: %w", w.ID, err)
	}
	if r.driver != nil {
		if err := r.driver.PutFile(ctx, walletPath(w.ID.String()), data); err != nil {
			return fmt.Errorf("persist wallet %s: %w", w.ID, err)
		}
	}

	r.mu.Lock()
	r.wallets[w.ID.String()] = w
	r.mu.Unlock()
	return nil
}

// Get returns a wallet by id, falling back to the persisted form when it is
// not cached in memory.
func (r *Registry) Get(ctx context.Context, id string) (*Wallet, error) {
	r.mu.RLock()
	w, ok := r.wallets[id]
	r.mu.RUnlock()
	if ok {
		return w, nil
	}
	if r.driver == nil {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}

	data, err := r.driver.GetFile(ctx, walletPath(id))
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet %s: %w", id, err)
	}

	var record walletRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode wallet %s: %w", id, err)
	}
	parsedID, err := uuid.Parse(record.ID)
	if err != nil {
		return nil, fmt.Errorf("decode wallet %s: %w", id, err)
	}
	kp, err := crypt.ImportKeypair(record.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode wallet %s: %w", id, err)
	}

	w = &Wallet{ID: parsedID, Keypair: kp}
	r.mu.Lock()
	r.wallets[id] = w
	r.mu.Unlock()
	return w, nil
}
