package primitives

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// LinkedTable is the shared machinery behind List and Collection kinds: a
// link container whose entries all point at one element kind.
type LinkedTable struct {
	base
	container *vault.LinkContainer
}

func (l *LinkedTable) Count() int {
	return l.container.Count()
}

// List returns the entity IDs: insertion order for ordered kinds, sorted
// otherwise.
func (l *LinkedTable) List() []string {
	ids := l.container.LinkIDs()
	if !l.desc.Ordered {
		sort.Strings(ids)
	}
	return ids
}

// AddEntity registers a link under an entity ID, replacing any previous link
// with that ID.
func (l *LinkedTable) AddEntity(ctx context.Context, author *wallet.Wallet, entityID, link string) error {
	entry, err := parseLink(link)
	if err != nil {
		return err
	}
	if err := l.factory.reg.ValidateLinkedKind(entry.Container, l.desc.ListOf); err != nil {
		return err
	}
	return l.container.AddLink(ctx, author, entityID, entry)
}

// GetEntity resolves one entry and hydrates its nested links. The first
// dereference goes through the factory's resolver, so a vault handle opened
// without its own resolver still serves entity reads.
func (l *LinkedTable) GetEntity(ctx context.Context, entityID string) (json.RawMessage, error) {
	entry, ok := l.container.Entry(entityID)
	if !ok {
		return nil, fmt.Errorf("%w: LinkID [%s] not found!", vault.ErrLinkNotFound, entityID)
	}
	content, err := l.factory.resolver.GetLinkedData(ctx, entry)
	if err != nil {
		return nil, err
	}
	return l.factory.hydrate(ctx, l.desc.ListOf, content)
}

// List is the insertion-ordered variant.
type List struct {
	*LinkedTable
}

// Collection reports entities in sorted order.
type Collection struct {
	*LinkedTable
}
