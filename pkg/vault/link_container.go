package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// LinkContainer stores plaintext pointers into other vaults. The pointed-to
// content is encrypted at its origin, so encrypting the pointer table here
// would only disguise unprotected data as protected; both encryption paths
// are hard failures.
type LinkContainer struct {
	containerBase
	entries map[string]links.Entry
	order   []string
}

func newLink(v *Vault, name string, roles []string) *LinkContainer {
	return &LinkContainer{
		containerBase: containerBase{vault: v, name: name, roles: roles},
		entries:       make(map[string]links.Entry),
	}
}

func (c *LinkContainer) Type() ContainerType {
	return TypeLink
}

// EncryptContents always fails; see the type comment.
func (c *LinkContainer) EncryptContents() error {
	return ErrEncryptionNotSupported
}

// DecryptContents always fails; see the type comment.
func (c *LinkContainer) DecryptContents(*wallet.Wallet) ([]byte, error) {
	return nil, ErrEncryptionNotSupported
}

// AddLink records a pointer under linkID. The ledger output is the hash of
// the entry so the pointer itself is tamper-evident even though it is not
// secret. Re-adding an existing id replaces the pointer with a new Entry;
// entries are never edited in place.
func (c *LinkContainer) AddLink(ctx context.Context, author *wallet.Wallet, linkID string, entry links.Entry) error {
	if _, exists := c.entries[linkID]; !exists {
		c.order = append(c.order, linkID)
	}
	c.entries[linkID] = entry

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode link entry: %w", err)
	}
	return c.vault.UpdateLedger(ctx, author, LedgerEntry{
		Action: "container.link.addlink",
		Params: map[string]interface{}{"container": c.name, "linkId": linkID},
		Output: crypt.HashBytes(raw).Hex(),
	})
}

// Entry returns the stored pointer for linkID.
func (c *LinkContainer) Entry(linkID string) (links.Entry, bool) {
	e, ok := c.entries[linkID]
	return e, ok
}

// LinkIDs returns ids in insertion order.
func (c *LinkContainer) LinkIDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Count returns the number of stored pointers.
func (c *LinkContainer) Count() int {
	return len(c.entries)
}

// GetLinkedContent dereferences the pointer stored under linkID through the
// vault's resolver.
func (c *LinkContainer) GetLinkedContent(ctx context.Context, linkID string) (json.RawMessage, error) {
	entry, ok := c.entries[linkID]
	if !ok {
		return nil, fmt.Errorf("%w: LinkID [%s] not found!", ErrLinkNotFound, linkID)
	}
	if c.vault.resolver == nil {
		return nil, fmt.Errorf("vault %s has no link resolver configured", c.vault.id)
	}
	return c.vault.resolver.GetLinkedData(ctx, entry)
}

func (c *LinkContainer) buildMeta(ctx context.Context) (*ContainerMeta, error) {
	m := c.baseMeta(TypeLink)
	m.LinkEntries = make(map[string]links.Entry, len(c.entries))
	for id, e := range c.entries {
		m.LinkEntries[id] = e
	}
	m.LinkOrder = append([]string(nil), c.order...)
	return m, nil
}

func (c *LinkContainer) loadMeta(m *ContainerMeta) error {
	c.loadBase(m)
	c.entries = make(map[string]links.Entry, len(m.LinkEntries))
	for id, e := range m.LinkEntries {
		c.entries[id] = e
	}
	c.order = append([]string(nil), m.LinkOrder...)

	// Older documents may lack an explicit order; fall back to map keys so
	// every stored entry stays reachable.
	if len(c.order) < len(c.entries) {
		seen := make(map[string]struct{}, len(c.order))
		for _, id := range c.order {
			seen[id] = struct{}{}
		}
		for id := range c.entries {
			if _, ok := seen[id]; !ok {
				c.order = append(c.order, id)
			}
		}
	}
	return nil
}
