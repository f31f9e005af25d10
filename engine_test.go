package engine

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/logging"
	"github.com/ShipChain/engine-sub001/pkg/primitives"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

func newTestEngine(t *testing.T) (*Engine, string, *wallet.Wallet) {
	t.Helper()
	e, err := New(Config{Logger: logging.Discard()})
	require.NoError(t, err)

	storageID := uuid.NewString()
	e.RegisterStorage(storageID, storage.NewMemoryDriver())

	author, err := wallet.Generate()
	require.NoError(t, err)
	require.NoError(t, e.Wallets().Add(context.Background(), author))
	return e, storageID, author
}

func TestCreateAndReopenVault(t *testing.T) {
	ctx := context.Background()
	e, storageID, author := newTestEngine(t)

	v, err := e.CreateVault(ctx, storageID, author)
	require.NoError(t, err)

	again, err := e.OpenVault(ctx, storageID, v.ID())
	require.NoError(t, err)
	assert.Equal(t, v.ID(), again.ID())
}

func TestOpenVaultUnknownStorage(t *testing.T) {
	ctx := context.Background()
	e, _, _ := newTestEngine(t)

	_, err := e.OpenVault(ctx, uuid.NewString(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)
}

// A shipment in one vault links to a document in another; a resolution pass
// pulls the document content through the shared resolver.
func TestCrossVaultLinkResolution(t *testing.T) {
	ctx := context.Background()
	e, storageID, author := newTestEngine(t)
	f := e.Primitives()

	docVault, err := e.CreateVault(ctx, storageID, author)
	require.NoError(t, err)
	p, err := f.Inject(docVault, "Document")
	require.NoError(t, err)
	doc := p.(*primitives.Document)
	require.NoError(t, doc.SetFields(ctx, author, map[string]any{"name": "bol.pdf"}))
	_, err = docVault.WriteMetadata(ctx, author)
	require.NoError(t, err)

	shipVault, err := e.CreateVault(ctx, storageID, author)
	require.NoError(t, err)
	p, err = f.Inject(shipVault, "Shipment")
	require.NoError(t, err)
	ship := p.(*primitives.Shipment)

	link := links.Entry{
		RemoteVault:   docVault.ID().String(),
		RemoteStorage: storageID,
		RemoteWallet:  author.ID.String(),
		Container:     "Document",
	}
	require.NoError(t, ship.AddDocument(ctx, author, "bol", link.String()))
	_, err = shipVault.WriteMetadata(ctx, author)
	require.NoError(t, err)

	props, err := ship.GetShipment(author)
	require.NoError(t, err)
	require.NoError(t, f.Process(ctx, props))

	require.True(t, props.Documents["bol"].IsResolved())
	var fields struct {
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(props.Documents["bol"].Value(), &fields))
	assert.Equal(t, "bol.pdf", fields.Fields["name"])
}

// One engine resolves a link served by another over JSON-RPC.
func TestRemoteLinkResolutionBetweenEngines(t *testing.T) {
	ctx := context.Background()

	remote, remoteStorage, remoteAuthor := newTestEngine(t)
	v, err := remote.CreateVault(ctx, remoteStorage, remoteAuthor)
	require.NoError(t, err)
	p, err := remote.Primitives().Inject(v, "Document")
	require.NoError(t, err)
	require.NoError(t, p.(*primitives.Document).SetFields(ctx, remoteAuthor, map[string]any{"name": "invoice.pdf"}))
	_, err = v.WriteMetadata(ctx, remoteAuthor)
	require.NoError(t, err)

	srv := httptest.NewServer(remote.RPCHandler())
	defer srv.Close()

	local, _, _ := newTestEngine(t)
	entry := links.Entry{
		RemoteURL:     srv.URL,
		RemoteVault:   v.ID().String(),
		RemoteStorage: remoteStorage,
		RemoteWallet:  remoteAuthor.ID.String(),
		Container:     "Document",
	}
	content, err := local.Resolver().GetLinkedData(ctx, entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"name":"invoice.pdf"}}`, string(content))
}
