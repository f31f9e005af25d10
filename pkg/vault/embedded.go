package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// EmbeddedFileContainer holds one opaque document inline in the vault
// metadata, sealed once per authorized role.
type EmbeddedFileContainer struct {
	containerBase
	raw      []byte
	modified bool
	sealed   map[string]*crypt.Envelope
}

func newEmbeddedFile(v *Vault, name string, roles []string) *EmbeddedFileContainer {
	return &EmbeddedFileContainer{
		containerBase: containerBase{vault: v, name: name, roles: roles},
	}
}

func (c *EmbeddedFileContainer) Type() ContainerType {
	return TypeEmbeddedFile
}

// SetContents replaces the raw content and records the mutation in the
// vault ledger.
func (c *EmbeddedFileContainer) SetContents(ctx context.Context, author *wallet.Wallet, content []byte) error {
	c.raw = append([]byte(nil), content...)
	c.modified = true

	return c.vault.UpdateLedger(ctx, author, LedgerEntry{
		Action: "container.file.setcontents",
		Params: map[string]interface{}{"container": c.name},
		Output: crypt.HashBytes(content).Hex(),
	})
}

// DecryptContents returns the plaintext content for a wallet holding at
// least one authorized role key.
func (c *EmbeddedFileContainer) DecryptContents(w *wallet.Wallet) ([]byte, error) {
	if c.raw != nil {
		return append([]byte(nil), c.raw...), nil
	}
	if len(c.sealed) == 0 {
		return nil, fmt.Errorf("%w: container %s", ErrNoContents, c.name)
	}
	content, err := c.openWithWallet(c.sealed, w)
	if err != nil {
		return nil, err
	}
	c.raw = content
	return append([]byte(nil), content...), nil
}

// encryptContents seals the raw content for every authorized role. The
// pass is memoized: unmodified content with existing ciphertext is left
// alone.
func (c *EmbeddedFileContainer) encryptContents() error {
	if !c.modified && len(c.sealed) > 0 {
		return nil
	}
	if c.raw == nil {
		return nil
	}
	sealed, err := c.sealForRoles(c.raw)
	if err != nil {
		return err
	}
	c.sealed = sealed
	c.modified = false
	return nil
}

func (c *EmbeddedFileContainer) buildMeta(ctx context.Context) (*ContainerMeta, error) {
	if err := c.encryptContents(); err != nil {
		return nil, err
	}
	m := c.baseMeta(TypeEmbeddedFile)
	m.EncryptedContents = c.sealed
	return m, nil
}

func (c *EmbeddedFileContainer) loadMeta(m *ContainerMeta) error {
	c.loadBase(m)
	c.sealed = m.EncryptedContents
	c.raw = nil
	c.modified = false
	return nil
}

// EmbeddedListContainer holds an ordered JSON sequence inline in the vault
// metadata. The reserved ledger container is one of these.
type EmbeddedListContainer struct {
	containerBase
	items    []json.RawMessage
	loaded   bool
	modified bool
	sealed   map[string]*crypt.Envelope
}

func newEmbeddedList(v *Vault, name string, roles []string) *EmbeddedListContainer {
	return &EmbeddedListContainer{
		containerBase: containerBase{vault: v, name: name, roles: roles},
		loaded:        true,
	}
}

func (c *EmbeddedListContainer) Type() ContainerType {
	return TypeEmbeddedList
}

// Load decrypts existing ciphertext into the in-memory sequence so appends
// extend instead of replace prior entries.
func (c *EmbeddedListContainer) Load(w *wallet.Wallet) error {
	if c.loaded {
		return nil
	}
	content, err := c.openWithWallet(c.sealed, w)
	if err != nil {
		return err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		return fmt.Errorf("%w: container %s: %v", ErrParseFailure, c.name, err)
	}
	c.items = items
	c.loaded = true
	return nil
}

// Append adds one item. Appending over unloaded ciphertext is refused so
// prior entries are never silently dropped.
func (c *EmbeddedListContainer) Append(ctx context.Context, author *wallet.Wallet, item interface{}) error {
	if !c.loaded && len(c.sealed) > 0 {
		return fmt.Errorf("%w: container %s", ErrLoadRequired, c.name)
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode list item: %w", err)
	}
	c.items = append(c.items, raw)
	c.modified = true

	return c.vault.UpdateLedger(ctx, author, LedgerEntry{
		Action: "container.list.append",
		Params: map[string]interface{}{"container": c.name},
		Output: crypt.HashBytes(raw).Hex(),
	})
}

// DecryptContents returns the full ordered sequence.
func (c *EmbeddedListContainer) DecryptContents(w *wallet.Wallet) ([]json.RawMessage, error) {
	if !c.loaded {
		if err := c.Load(w); err != nil {
			return nil, err
		}
	}
	out := make([]json.RawMessage, len(c.items))
	copy(out, c.items)
	return out, nil
}

// Count returns the number of loaded items.
func (c *EmbeddedListContainer) Count() int {
	return len(c.items)
}

func (c *EmbeddedListContainer) encryptContents() error {
	if !c.modified && len(c.sealed) > 0 {
		return nil
	}
	if len(c.items) == 0 {
		return nil
	}
	payload, err := json.Marshal(c.items)
	if err != nil {
		return fmt.Errorf("encode container %s: %w", c.name, err)
	}
	sealed, err := c.sealForRoles(payload)
	if err != nil {
		return err
	}
	c.sealed = sealed
	c.modified = false
	return nil
}

func (c *EmbeddedListContainer) buildMeta(ctx context.Context) (*ContainerMeta, error) {
	if err := c.encryptContents(); err != nil {
		return nil, err
	}
	m := c.baseMeta(TypeEmbeddedList)
	m.EncryptedContents = c.sealed
	return m, nil
}

func (c *EmbeddedListContainer) loadMeta(m *ContainerMeta) error {
	c.loadBase(m)
	c.sealed = m.EncryptedContents
	c.items = nil
	c.loaded = len(c.sealed) == 0
	c.modified = false
	return nil
}
