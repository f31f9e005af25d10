package primitives

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

func parseLink(link string) (links.Entry, error) {
	return links.Parse(link)
}

// loadProps decrypts an entity container into props. A container that has
// never been written stays at its empty shape; sealed content that decrypts
// to nothing is corruption and surfaces as an error.
func loadProps(c *vault.EmbeddedFileContainer, w *wallet.Wallet, props any) error {
	content, err := c.DecryptContents(w)
	if errors.Is(err, vault.ErrNoContents) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, props); err != nil {
		return fmt.Errorf("%w: %v", vault.ErrParseFailure, err)
	}
	return nil
}

func saveProps(ctx context.Context, c *vault.EmbeddedFileContainer, author *wallet.Wallet, props any) error {
	content, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return c.SetContents(ctx, author, content)
}

func mergeFields(dst map[string]any, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// Document is a single embedded file of free-form fields.
type Document struct {
	base
	container *vault.EmbeddedFileContainer
}

func (d *Document) GetDocument(w *wallet.Wallet) (*DocumentProperties, error) {
	props := NewDocumentProperties()
	if err := loadProps(d.container, w, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (d *Document) SetFields(ctx context.Context, author *wallet.Wallet, fields map[string]any) error {
	props, err := d.GetDocument(author)
	if err != nil {
		return err
	}
	mergeFields(props.Fields, fields)
	return saveProps(ctx, d.container, author, props)
}

// Product describes goods and links to their supporting documents.
type Product struct {
	base
	container *vault.EmbeddedFileContainer
}

func (p *Product) GetProduct(w *wallet.Wallet) (*ProductProperties, error) {
	props := NewProductProperties()
	if err := loadProps(p.container, w, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *Product) SetFields(ctx context.Context, author *wallet.Wallet, fields map[string]any) error {
	props, err := p.GetProduct(author)
	if err != nil {
		return err
	}
	mergeFields(props.Fields, fields)
	return saveProps(ctx, p.container, author, props)
}

func (p *Product) AddDocument(ctx context.Context, author *wallet.Wallet, docID, link string) error {
	if err := p.validateLink(link, "Document"); err != nil {
		return err
	}
	props, err := p.GetProduct(author)
	if err != nil {
		return err
	}
	props.Documents[docID] = NewRef(link)
	return saveProps(ctx, p.container, author, props)
}

// Item is an instance of a product with its own fields.
type Item struct {
	base
	container *vault.EmbeddedFileContainer
}

func (i *Item) GetItem(w *wallet.Wallet) (*ItemProperties, error) {
	props := NewItemProperties()
	if err := loadProps(i.container, w, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (i *Item) SetFields(ctx context.Context, author *wallet.Wallet, fields map[string]any) error {
	props, err := i.GetItem(author)
	if err != nil {
		return err
	}
	mergeFields(props.Fields, fields)
	return saveProps(ctx, i.container, author, props)
}

func (i *Item) SetProduct(ctx context.Context, author *wallet.Wallet, link string) error {
	if err := i.validateLink(link, "Product"); err != nil {
		return err
	}
	props, err := i.GetItem(author)
	if err != nil {
		return err
	}
	props.Product = NewRef(link)
	return saveProps(ctx, i.container, author, props)
}

// Shipment aggregates documents, items, and movement feeds for one load.
type Shipment struct {
	base
	container *vault.EmbeddedFileContainer
}

func (s *Shipment) GetShipment(w *wallet.Wallet) (*ShipmentProperties, error) {
	props := NewShipmentProperties()
	if err := loadProps(s.container, w, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (s *Shipment) SetFields(ctx context.Context, author *wallet.Wallet, fields map[string]any) error {
	props, err := s.GetShipment(author)
	if err != nil {
		return err
	}
	mergeFields(props.Fields, fields)
	return saveProps(ctx, s.container, author, props)
}

func (s *Shipment) AddDocument(ctx context.Context, author *wallet.Wallet, docID, link string) error {
	if err := s.validateLink(link, "Document"); err != nil {
		return err
	}
	props, err := s.GetShipment(author)
	if err != nil {
		return err
	}
	props.Documents[docID] = NewRef(link)
	return saveProps(ctx, s.container, author, props)
}

func (s *Shipment) AddItem(ctx context.Context, author *wallet.Wallet, itemID, link string, quantity float64) error {
	if err := s.validateLink(link, "Item"); err != nil {
		return err
	}
	props, err := s.GetShipment(author)
	if err != nil {
		return err
	}
	props.Items[itemID] = &ShipmentItem{Quantity: quantity, Item: NewRef(link)}
	return saveProps(ctx, s.container, author, props)
}

func (s *Shipment) SetTracking(ctx context.Context, author *wallet.Wallet, link string) error {
	if err := s.validateLink(link, "Tracking"); err != nil {
		return err
	}
	props, err := s.GetShipment(author)
	if err != nil {
		return err
	}
	props.Tracking = NewRef(link)
	return saveProps(ctx, s.container, author, props)
}

func (s *Shipment) SetTelemetry(ctx context.Context, author *wallet.Wallet, link string) error {
	if err := s.validateLink(link, "Telemetry"); err != nil {
		return err
	}
	props, err := s.GetShipment(author)
	if err != nil {
		return err
	}
	props.Telemetry = NewRef(link)
	return saveProps(ctx, s.container, author, props)
}

// Procurement aggregates the shipments, documents, and ordered products of
// one purchase.
type Procurement struct {
	base
	container *vault.EmbeddedFileContainer
}

func (p *Procurement) GetProcurement(w *wallet.Wallet) (*ProcurementProperties, error) {
	props := NewProcurementProperties()
	if err := loadProps(p.container, w, props); err != nil {
		return nil, err
	}
	return props, nil
}

func (p *Procurement) SetFields(ctx context.Context, author *wallet.Wallet, fields map[string]any) error {
	props, err := p.GetProcurement(author)
	if err != nil {
		return err
	}
	mergeFields(props.Fields, fields)
	return saveProps(ctx, p.container, author, props)
}

func (p *Procurement) AddShipment(ctx context.Context, author *wallet.Wallet, shipmentID, link string) error {
	if err := p.validateLink(link, "Shipment"); err != nil {
		return err
	}
	props, err := p.GetProcurement(author)
	if err != nil {
		return err
	}
	props.Shipments[shipmentID] = NewRef(link)
	return saveProps(ctx, p.container, author, props)
}

func (p *Procurement) AddDocument(ctx context.Context, author *wallet.Wallet, docID, link string) error {
	if err := p.validateLink(link, "Document"); err != nil {
		return err
	}
	props, err := p.GetProcurement(author)
	if err != nil {
		return err
	}
	props.Documents[docID] = NewRef(link)
	return saveProps(ctx, p.container, author, props)
}

func (p *Procurement) AddProduct(ctx context.Context, author *wallet.Wallet, productID, link string, quantity float64) error {
	if err := p.validateLink(link, "Product"); err != nil {
		return err
	}
	props, err := p.GetProcurement(author)
	if err != nil {
		return err
	}
	props.Products[productID] = &ProcurementProduct{Quantity: quantity, Product: NewRef(link)}
	return saveProps(ctx, p.container, author, props)
}
