package primitives

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

type stubResolver struct {
	data map[string]json.RawMessage
}

func (s *stubResolver) GetLinkedData(_ context.Context, entry links.Entry) (json.RawMessage, error) {
	if raw, ok := s.data[entry.String()]; ok {
		return raw, nil
	}
	return nil, fmt.Errorf("no linked data for %s", entry.String())
}

func makeLink(container string) string {
	entry := links.Entry{
		RemoteVault:   uuid.NewString(),
		RemoteStorage: uuid.NewString(),
		RemoteWallet:  uuid.NewString(),
		Container:     container,
	}
	return entry.String()
}

func newTestVault(t *testing.T) (*vault.Vault, *wallet.Wallet) {
	t.Helper()
	author, err := wallet.Generate()
	require.NoError(t, err)
	v := vault.New(storage.NewMemoryDriver(), uuid.New())
	require.NoError(t, v.InitializeMetadata(context.Background(), author))
	return v, author
}

func TestRegistryKnowsEveryVariant(t *testing.T) {
	reg := NewRegistry()
	for _, kind := range []string{
		"Shipment", "Item", "Product", "Document", "Procurement",
		"ShipmentList", "DocumentCollection", "ProcurementList",
		"Tracking", "Telemetry",
	} {
		assert.True(t, reg.IsValid(kind), kind)
	}
	assert.False(t, reg.IsValid("Manifest"))
	assert.False(t, reg.IsValid("document"))

	_, err := reg.Get("Manifest")
	assert.ErrorIs(t, err, ErrInvalidPrimitiveType)
}

func TestInjectRejectsDuplicate(t *testing.T) {
	v, _ := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	_, err := f.Inject(v, "Shipment")
	require.NoError(t, err)
	_, err = f.Inject(v, "Shipment")
	assert.ErrorIs(t, err, ErrPrimitiveAlreadyExists)
}

func TestGetRequiresInjection(t *testing.T) {
	v, _ := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	_, err := f.Get(v, "Document")
	assert.ErrorIs(t, err, ErrPrimitiveMissing)

	_, err = f.Get(v, "NotAKind")
	assert.ErrorIs(t, err, ErrInvalidPrimitiveType)
}

func TestProcurementEmptyShape(t *testing.T) {
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "Procurement")
	require.NoError(t, err)
	props, err := p.(*Procurement).GetProcurement(author)
	require.NoError(t, err)

	content, err := json.Marshal(props)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{},"shipments":{},"documents":{},"products":{}}`, string(content))
}

func TestShipmentFieldUpdatesMerge(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "Shipment")
	require.NoError(t, err)
	s := p.(*Shipment)

	require.NoError(t, s.SetFields(ctx, author, map[string]any{"carrier": "ACME", "mode": "sea"}))
	require.NoError(t, s.SetFields(ctx, author, map[string]any{"mode": "air"}))

	props, err := s.GetShipment(author)
	require.NoError(t, err)
	assert.Equal(t, "ACME", props.Fields["carrier"])
	assert.Equal(t, "air", props.Fields["mode"])
}

func TestCorruptEntityContentSurfacesError(t *testing.T) {
	ctx := context.Background()
	driver := storage.NewMemoryDriver()
	author, err := wallet.Generate()
	require.NoError(t, err)
	v := vault.New(driver, uuid.New())
	require.NoError(t, v.InitializeMetadata(ctx, author))
	f := NewFactory(NewRegistry(), &stubResolver{})

	_, err = f.Inject(v, "Document")
	require.NoError(t, err)

	// Sealed content that decrypts to a JSON null must not be mistaken
	// for a never-written container's empty shape.
	c, ok := v.Container("Document")
	require.True(t, ok)
	require.NoError(t, c.(*vault.EmbeddedFileContainer).SetContents(ctx, author, []byte(`null`)))
	_, err = v.WriteMetadata(ctx, author)
	require.NoError(t, err)

	reloaded := vault.New(driver, v.ID())
	require.NoError(t, reloaded.LoadMetadata(ctx))
	p, err := f.Get(reloaded, "Document")
	require.NoError(t, err)

	_, err = p.(*Document).GetDocument(author)
	assert.ErrorIs(t, err, vault.ErrEmptyContainer)
}

func TestLinkKindValidation(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "Shipment")
	require.NoError(t, err)
	s := p.(*Shipment)

	err = s.AddDocument(ctx, author, "bol", makeLink("Product"))
	require.Error(t, err)
	assert.Equal(t, "Expecting Link to [Document] instead received [Product]", err.Error())

	require.NoError(t, s.AddDocument(ctx, author, "bol", makeLink("Document")))
	props, err := s.GetShipment(author)
	require.NoError(t, err)
	require.Contains(t, props.Documents, "bol")
	assert.False(t, props.Documents["bol"].IsResolved())
}

func TestRefMarshalRoundTrip(t *testing.T) {
	link := makeLink("Document")
	ref := NewRef(link)

	out, err := json.Marshal(ref)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%q", link), string(out))

	var back Ref
	require.NoError(t, json.Unmarshal(out, &back))
	assert.False(t, back.IsResolved())
	assert.Equal(t, link, back.Link())

	var resolved Ref
	require.NoError(t, json.Unmarshal([]byte(`{"fields":{"name":"bol.pdf"}}`), &resolved))
	assert.True(t, resolved.IsResolved())
	assert.JSONEq(t, `{"fields":{"name":"bol.pdf"}}`, string(resolved.Value()))
}

func TestProcessResolvesNestedLinks(t *testing.T) {
	ctx := context.Background()

	docLink := makeLink("Document")
	itemLink := makeLink("Item")
	productLink := makeLink("Product")

	res := &stubResolver{data: map[string]json.RawMessage{
		docLink:     json.RawMessage(`{"fields":{"name":"bol.pdf"}}`),
		productLink: json.RawMessage(`{"fields":{"sku":"SKU-1"},"documents":{}}`),
		itemLink:    json.RawMessage(fmt.Sprintf(`{"fields":{},"product":%q}`, productLink)),
	}}
	f := NewFactory(NewRegistry(), res)

	props := NewShipmentProperties()
	props.Documents["bol"] = NewRef(docLink)
	props.Items["crate"] = &ShipmentItem{Quantity: 3, Item: NewRef(itemLink)}

	require.NoError(t, f.Process(ctx, props))

	assert.True(t, props.Documents["bol"].IsResolved())
	assert.JSONEq(t, `{"fields":{"name":"bol.pdf"}}`, string(props.Documents["bol"].Value()))

	item := props.Items["crate"].Item
	require.True(t, item.IsResolved())
	var hydrated ItemProperties
	require.NoError(t, json.Unmarshal(item.Value(), &hydrated))
	require.NotNil(t, hydrated.Product)
	assert.True(t, hydrated.Product.IsResolved())
}

func TestProcessBoundsDepth(t *testing.T) {
	ctx := context.Background()

	itemLink := makeLink("Item")
	productLink := makeLink("Product")
	res := &stubResolver{data: map[string]json.RawMessage{
		itemLink:    json.RawMessage(fmt.Sprintf(`{"fields":{},"product":%q}`, productLink)),
		productLink: json.RawMessage(`{"fields":{},"documents":{}}`),
	}}
	f := NewFactory(NewRegistry(), res, WithMaxDepth(1))

	props := NewShipmentProperties()
	props.Items["crate"] = &ShipmentItem{Item: NewRef(itemLink)}
	err := f.Process(ctx, props)
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)
}

func TestProcessDetectsCycle(t *testing.T) {
	ctx := context.Background()

	itemLink := makeLink("Item")
	productLink := makeLink("Product")
	backLink := itemLink // same vault, container, subFile triple

	res := &stubResolver{data: map[string]json.RawMessage{
		itemLink:    json.RawMessage(fmt.Sprintf(`{"fields":{},"product":%q}`, productLink)),
		productLink: json.RawMessage(fmt.Sprintf(`{"fields":{},"documents":{"d":%q}}`, backLink)),
	}}
	f := NewFactory(NewRegistry(), res)

	// productLink hydrates a document ref pointing back at itemLink's
	// triple; resolving it again within the same pass must fail.
	props := NewShipmentProperties()
	props.Items["a"] = &ShipmentItem{Item: NewRef(itemLink)}
	err := f.Process(ctx, props)
	assert.ErrorIs(t, err, ErrResolutionCycle)
}

func TestListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "DocumentList")
	require.NoError(t, err)
	list := p.(*List)

	require.NoError(t, list.AddEntity(ctx, author, "zeta", makeLink("Document")))
	require.NoError(t, list.AddEntity(ctx, author, "alpha", makeLink("Document")))
	require.NoError(t, list.AddEntity(ctx, author, "mid", makeLink("Document")))

	assert.Equal(t, 3, list.Count())
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, list.List())
}

func TestCollectionSortsEntities(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "DocumentCollection")
	require.NoError(t, err)
	coll := p.(*Collection)

	require.NoError(t, coll.AddEntity(ctx, author, "zeta", makeLink("Document")))
	require.NoError(t, coll.AddEntity(ctx, author, "alpha", makeLink("Document")))

	assert.Equal(t, []string{"alpha", "zeta"}, coll.List())
}

func TestListRejectsWrongElementKind(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "ShipmentList")
	require.NoError(t, err)
	list := p.(*List)

	err = list.AddEntity(ctx, author, "s1", makeLink("Document"))
	require.Error(t, err)
	assert.Equal(t, "Expecting Link to [Shipment] instead received [Document]", err.Error())
}

func TestGetEntityUnknownLink(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "DocumentList")
	require.NoError(t, err)

	_, err = p.(*List).GetEntity(ctx, "unknownLink")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LinkID [unknownLink] not found!")
}

func TestGetEntityHydratesContent(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)

	docLink := makeLink("Document")
	shipLink := makeLink("Shipment")
	res := &stubResolver{data: map[string]json.RawMessage{
		docLink:  json.RawMessage(`{"fields":{"name":"bol.pdf"}}`),
		shipLink: json.RawMessage(fmt.Sprintf(`{"fields":{},"documents":{"bol":%q},"items":{}}`, docLink)),
	}}
	f := NewFactory(NewRegistry(), res)

	p, err := f.Inject(v, "ShipmentList")
	require.NoError(t, err)
	list := p.(*List)
	require.NoError(t, list.AddEntity(ctx, author, "s1", shipLink))

	content, err := list.GetEntity(ctx, "s1")
	require.NoError(t, err)

	var props ShipmentProperties
	require.NoError(t, json.Unmarshal(content, &props))
	require.Contains(t, props.Documents, "bol")
	assert.True(t, props.Documents["bol"].IsResolved())
}

func TestEventFeedRoundTrip(t *testing.T) {
	ctx := context.Background()
	v, author := newTestVault(t)
	f := NewFactory(NewRegistry(), &stubResolver{})

	p, err := f.Inject(v, "Tracking")
	require.NoError(t, err)
	tracking := p.(*Tracking)

	require.NoError(t, tracking.Add(ctx, author, map[string]any{"lat": 40.4, "lon": -3.7}))
	require.NoError(t, tracking.Add(ctx, author, map[string]any{"lat": 40.5, "lon": -3.6}))
	_, err = v.WriteMetadata(ctx, author)
	require.NoError(t, err)

	readings, err := tracking.All(ctx, author)
	require.NoError(t, err)
	assert.Len(t, readings, 2)
}
