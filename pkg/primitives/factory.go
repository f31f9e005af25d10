package primitives

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ShipChain/engine-sub001/pkg/vault"
)

// DefaultMaxDepth bounds how many nested links one resolution pass may
// follow.
const DefaultMaxDepth = 10

// Primitive is the common surface of every injected kind.
type Primitive interface {
	Kind() string
}

// Factory injects primitives into vaults and runs resolution passes. The
// registry and resolver are fixed at construction so every vault in a
// process shares one closed kind set.
type Factory struct {
	reg      *Registry
	resolver linkResolver
	maxDepth int
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

func WithMaxDepth(depth int) FactoryOption {
	return func(f *Factory) { f.maxDepth = depth }
}

func NewFactory(reg *Registry, resolver linkResolver, opts ...FactoryOption) *Factory {
	f := &Factory{reg: reg, resolver: resolver, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Registry() *Registry {
	return f.reg
}

// Inject creates the container backing a primitive kind. A kind can live in
// a vault at most once.
func (f *Factory) Inject(v *vault.Vault, kind string) (Primitive, error) {
	desc, err := f.reg.Get(kind)
	if err != nil {
		return nil, err
	}
	if _, exists := v.Container(kind); exists {
		return nil, fmt.Errorf("%w: [%s]", ErrPrimitiveAlreadyExists, kind)
	}
	c, err := v.CreateContainer(kind, desc.ContainerType)
	if err != nil {
		return nil, err
	}
	if marker, ok := c.(interface{ MarkPrimitive() }); ok {
		marker.MarkPrimitive()
	}
	return f.wrap(v, desc, c)
}

// Get returns the primitive already present in the vault.
func (f *Factory) Get(v *vault.Vault, kind string) (Primitive, error) {
	desc, err := f.reg.Get(kind)
	if err != nil {
		return nil, err
	}
	c, exists := v.Container(kind)
	if !exists {
		return nil, fmt.Errorf("%w: [%s]", ErrPrimitiveMissing, kind)
	}
	return f.wrap(v, desc, c)
}

func (f *Factory) wrap(v *vault.Vault, desc Descriptor, c vault.Container) (Primitive, error) {
	if c.Type() != desc.ContainerType {
		return nil, fmt.Errorf("%w: container [%s] is %s, want %s",
			ErrInvalidPrimitiveType, desc.Name, c.Type(), desc.ContainerType)
	}
	base := base{factory: f, vault: v, desc: desc}
	switch desc.ContainerType {
	case vault.TypeEmbeddedFile:
		file := c.(*vault.EmbeddedFileContainer)
		switch desc.Name {
		case "Document":
			return &Document{base: base, container: file}, nil
		case "Product":
			return &Product{base: base, container: file}, nil
		case "Item":
			return &Item{base: base, container: file}, nil
		case "Shipment":
			return &Shipment{base: base, container: file}, nil
		case "Procurement":
			return &Procurement{base: base, container: file}, nil
		}
	case vault.TypeLink:
		table := &LinkedTable{base: base, container: c.(*vault.LinkContainer)}
		if desc.Ordered {
			return &List{LinkedTable: table}, nil
		}
		return &Collection{LinkedTable: table}, nil
	case vault.TypeExternalListDaily:
		feed := &EventFeed{base: base, container: c.(*vault.ExternalListDailyContainer)}
		if desc.Name == "Tracking" {
			return &Tracking{EventFeed: feed}, nil
		}
		return &Telemetry{EventFeed: feed}, nil
	}
	return nil, fmt.Errorf("%w: [%s]", ErrInvalidPrimitiveType, desc.Name)
}

// Process runs one resolution pass over a properties value, replacing every
// reachable link with the linked entity's content.
func (f *Factory) Process(ctx context.Context, props any) error {
	p, ok := props.(processor)
	if !ok {
		return fmt.Errorf("%w: %T has no linked structure", ErrInvalidPrimitiveType, props)
	}
	return p.process(ctx, newHydrator(f.reg, f.resolver, f.maxDepth), 0)
}

// hydrate resolves raw entity content of a known kind into its processed
// form.
func (f *Factory) hydrate(ctx context.Context, kind string, content json.RawMessage) (json.RawMessage, error) {
	props := newPropertiesFor(kind)
	if props == nil {
		return content, nil
	}
	if err := json.Unmarshal(content, props); err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrParseFailure, err)
	}
	if err := props.process(ctx, newHydrator(f.reg, f.resolver, f.maxDepth), 0); err != nil {
		return nil, err
	}
	return json.Marshal(props)
}

type base struct {
	factory *Factory
	vault   *vault.Vault
	desc    Descriptor
}

func (b *base) Kind() string {
	return b.desc.Name
}

// validateLink parses a link string and checks the target kind.
func (b *base) validateLink(link, expected string) error {
	entry, err := parseLink(link)
	if err != nil {
		return err
	}
	return b.factory.reg.ValidateLinkedKind(entry.Container, expected)
}
