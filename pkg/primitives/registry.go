// Package primitives layers a closed set of typed logistics entities on top
// of vault containers. Each primitive kind maps to one container whose name
// is the kind itself, which is what makes cross-vault links type-checkable.
package primitives

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ShipChain/engine-sub001/pkg/vault"
)

var (
	ErrInvalidPrimitiveType   = errors.New("primitives: invalid primitive type")
	ErrPrimitiveAlreadyExists = errors.New("primitives: primitive already exists")
	ErrPrimitiveMissing       = errors.New("primitives: primitive not present in vault")
	ErrMaxDepthExceeded       = errors.New("primitives: maximum link resolution depth exceeded")
	ErrResolutionCycle        = errors.New("primitives: link resolution cycle detected")
)

// TypeMismatchError reports a link whose target container is a different
// primitive kind than the relationship expects.
type TypeMismatchError struct {
	Expected string
	Received string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("Expecting Link to [%s] instead received [%s]", e.Expected, e.Received)
}

// Descriptor describes one registered primitive kind.
type Descriptor struct {
	Name          string
	ContainerType vault.ContainerType

	// ListOf names the element kind for List and Collection variants.
	ListOf string
	// Ordered is true for Lists, which report entities in insertion order.
	// Collections report them sorted.
	Ordered bool
}

// entityKinds are the linkable kinds; each also gets a List and a
// Collection variant.
var entityKinds = []string{"Shipment", "Item", "Product", "Document", "Procurement"}

// Registry is the closed set of known kinds. It is built once and injected
// wherever kinds need validating; nothing registers kinds at runtime.
type Registry struct {
	kinds map[string]Descriptor
}

func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Descriptor)}
	for _, kind := range entityKinds {
		r.kinds[kind] = Descriptor{Name: kind, ContainerType: vault.TypeEmbeddedFile}
		r.kinds[kind+"List"] = Descriptor{
			Name:          kind + "List",
			ContainerType: vault.TypeLink,
			ListOf:        kind,
			Ordered:       true,
		}
		r.kinds[kind+"Collection"] = Descriptor{
			Name:          kind + "Collection",
			ContainerType: vault.TypeLink,
			ListOf:        kind,
		}
	}
	r.kinds["Tracking"] = Descriptor{Name: "Tracking", ContainerType: vault.TypeExternalListDaily}
	r.kinds["Telemetry"] = Descriptor{Name: "Telemetry", ContainerType: vault.TypeExternalListDaily}
	return r
}

func (r *Registry) IsValid(name string) bool {
	_, ok := r.kinds[name]
	return ok
}

func (r *Registry) Get(name string) (Descriptor, error) {
	desc, ok := r.kinds[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: [%s]", ErrInvalidPrimitiveType, name)
	}
	return desc, nil
}

// Names returns every registered kind, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateLinkedKind checks that a link's container token names the expected
// primitive kind.
func (r *Registry) ValidateLinkedKind(received, expected string) error {
	if received != expected {
		return &TypeMismatchError{Expected: expected, Received: received}
	}
	if !r.IsValid(received) {
		return fmt.Errorf("%w: [%s]", ErrInvalidPrimitiveType, received)
	}
	return nil
}
