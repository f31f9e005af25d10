package primitives

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/ShipChain/engine-sub001/pkg/links"
)

// Ref is a tagged reference to another primitive: either an unresolved link
// string or, after a resolution pass, the linked entity's hydrated content.
// On the wire an unresolved Ref is a plain link string, so stored documents
// never carry resolved content.
type Ref struct {
	link     string
	resolved json.RawMessage
}

// NewRef builds an unresolved reference from a link string.
func NewRef(link string) *Ref {
	return &Ref{link: link}
}

func (r *Ref) IsResolved() bool {
	return r.resolved != nil
}

// Link returns the original link string, empty once only resolved content is
// known.
func (r *Ref) Link() string {
	return r.link
}

// Value returns the hydrated content, nil while unresolved.
func (r *Ref) Value() json.RawMessage {
	return r.resolved
}

// Entry parses the underlying link string.
func (r *Ref) Entry() (links.Entry, error) {
	return links.Parse(r.link)
}

func (r *Ref) MarshalJSON() ([]byte, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	return json.Marshal(r.link)
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && strings.HasPrefix(s, links.Prefix) {
		r.link = s
		r.resolved = nil
		return nil
	}
	r.resolved = append(json.RawMessage(nil), data...)
	return nil
}

// hydrator drives one resolution pass. Depth is bounded and every
// (vault, container, subFile) triple visited during the pass is tracked so a
// revisit fails instead of looping.
type hydrator struct {
	reg      *Registry
	resolver linkResolver
	maxDepth int
	visited  map[string]struct{}
}

type linkResolver interface {
	GetLinkedData(ctx context.Context, entry links.Entry) (json.RawMessage, error)
}

// processor is implemented by every properties struct that carries Refs.
type processor interface {
	process(ctx context.Context, h *hydrator, depth int) error
}

func newHydrator(reg *Registry, resolver linkResolver, maxDepth int) *hydrator {
	return &hydrator{
		reg:      reg,
		resolver: resolver,
		maxDepth: maxDepth,
		visited:  make(map[string]struct{}),
	}
}

func (h *hydrator) resolveRef(ctx context.Context, r *Ref, depth int) error {
	if r == nil || r.IsResolved() {
		return nil
	}
	if depth >= h.maxDepth {
		return ErrMaxDepthExceeded
	}

	entry, err := r.Entry()
	if err != nil {
		return err
	}
	key := entry.RemoteVault + "/" + entry.Container + "/" + entry.SubFile
	if _, seen := h.visited[key]; seen {
		return ErrResolutionCycle
	}
	h.visited[key] = struct{}{}

	content, err := h.resolver.GetLinkedData(ctx, entry)
	if err != nil {
		return err
	}

	// Hydrate nested references when the target is a known entity kind.
	if props := newPropertiesFor(entry.Container); props != nil {
		if err := json.Unmarshal(content, props); err == nil {
			if err := props.process(ctx, h, depth+1); err != nil {
				return err
			}
			if content, err = json.Marshal(props); err != nil {
				return err
			}
		}
	}

	r.resolved = content
	return nil
}

func (h *hydrator) resolveRefMap(ctx context.Context, refs map[string]*Ref, depth int) error {
	for _, key := range sortedKeys(refs) {
		if err := h.resolveRef(ctx, refs[key], depth); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
