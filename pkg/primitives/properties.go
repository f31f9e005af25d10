package primitives

import (
	"context"
)

// DocumentProperties carries free-form document fields. Documents link to
// nothing, so a resolution pass leaves them untouched.
type DocumentProperties struct {
	Fields map[string]any `json:"fields"`
}

func NewDocumentProperties() *DocumentProperties {
	return &DocumentProperties{Fields: map[string]any{}}
}

func (p *DocumentProperties) process(context.Context, *hydrator, int) error {
	return nil
}

// ProductProperties describes a product and its supporting documents.
type ProductProperties struct {
	Fields    map[string]any  `json:"fields"`
	Documents map[string]*Ref `json:"documents"`
}

func NewProductProperties() *ProductProperties {
	return &ProductProperties{
		Fields:    map[string]any{},
		Documents: map[string]*Ref{},
	}
}

func (p *ProductProperties) process(ctx context.Context, h *hydrator, depth int) error {
	return h.resolveRefMap(ctx, p.Documents, depth)
}

// ItemProperties is a quantity-bearing instance of a product.
type ItemProperties struct {
	Fields  map[string]any `json:"fields"`
	Product *Ref           `json:"product,omitempty"`
}

func NewItemProperties() *ItemProperties {
	return &ItemProperties{Fields: map[string]any{}}
}

func (p *ItemProperties) process(ctx context.Context, h *hydrator, depth int) error {
	return h.resolveRef(ctx, p.Product, depth)
}

// ShipmentItem pairs an item link with the quantity aboard.
type ShipmentItem struct {
	Quantity float64 `json:"quantity"`
	Item     *Ref    `json:"item,omitempty"`
}

// ShipmentProperties ties a shipment to its documents, items, and movement
// feeds.
type ShipmentProperties struct {
	Fields    map[string]any           `json:"fields"`
	Documents map[string]*Ref          `json:"documents"`
	Items     map[string]*ShipmentItem `json:"items"`
	Tracking  *Ref                     `json:"tracking,omitempty"`
	Telemetry *Ref                     `json:"telemetry,omitempty"`
}

func NewShipmentProperties() *ShipmentProperties {
	return &ShipmentProperties{
		Fields:    map[string]any{},
		Documents: map[string]*Ref{},
		Items:     map[string]*ShipmentItem{},
	}
}

func (p *ShipmentProperties) process(ctx context.Context, h *hydrator, depth int) error {
	if err := h.resolveRefMap(ctx, p.Documents, depth); err != nil {
		return err
	}
	for _, key := range sortedKeys(p.Items) {
		if item := p.Items[key]; item != nil {
			if err := h.resolveRef(ctx, item.Item, depth); err != nil {
				return err
			}
		}
	}
	if err := h.resolveRef(ctx, p.Tracking, depth); err != nil {
		return err
	}
	return h.resolveRef(ctx, p.Telemetry, depth)
}

// ProcurementProduct pairs a product link with an ordered quantity.
type ProcurementProduct struct {
	Quantity float64 `json:"quantity"`
	Product  *Ref    `json:"product,omitempty"`
}

// ProcurementProperties aggregates the shipments, documents, and products of
// one procurement.
type ProcurementProperties struct {
	Fields    map[string]any                 `json:"fields"`
	Shipments map[string]*Ref                `json:"shipments"`
	Documents map[string]*Ref                `json:"documents"`
	Products  map[string]*ProcurementProduct `json:"products"`
}

func NewProcurementProperties() *ProcurementProperties {
	return &ProcurementProperties{
		Fields:    map[string]any{},
		Shipments: map[string]*Ref{},
		Documents: map[string]*Ref{},
		Products:  map[string]*ProcurementProduct{},
	}
}

func (p *ProcurementProperties) process(ctx context.Context, h *hydrator, depth int) error {
	if err := h.resolveRefMap(ctx, p.Shipments, depth); err != nil {
		return err
	}
	if err := h.resolveRefMap(ctx, p.Documents, depth); err != nil {
		return err
	}
	for _, key := range sortedKeys(p.Products) {
		if prod := p.Products[key]; prod != nil {
			if err := h.resolveRef(ctx, prod.Product, depth); err != nil {
				return err
			}
		}
	}
	return nil
}

// newPropertiesFor returns a fresh properties value for an entity kind, nil
// for kinds without nested structure.
func newPropertiesFor(kind string) processor {
	switch kind {
	case "Document":
		return NewDocumentProperties()
	case "Product":
		return NewProductProperties()
	case "Item":
		return NewItemProperties()
	case "Shipment":
		return NewShipmentProperties()
	case "Procurement":
		return NewProcurementProperties()
	default:
		return nil
	}
}
