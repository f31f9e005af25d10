package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/vault"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

type fixture struct {
	storages  *storage.Registry
	wallets   *wallet.Registry
	storageID string
	author    *wallet.Wallet
	vaultID   uuid.UUID
	driver    storage.Driver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	driver := storage.NewMemoryDriver()
	storageID := uuid.NewString()
	storages := storage.NewRegistry()
	storages.Register(storageID, driver)

	wallets := wallet.NewRegistry(storage.NewMemoryDriver())
	author, err := wallet.Generate()
	require.NoError(t, err)
	require.NoError(t, wallets.Add(ctx, author))

	vaultID := uuid.New()
	v := vault.New(driver, vaultID)
	require.NoError(t, v.InitializeMetadata(ctx, author))

	c, err := v.CreateContainer("Document", vault.TypeEmbeddedFile)
	require.NoError(t, err)
	file := c.(*vault.EmbeddedFileContainer)
	require.NoError(t, file.SetContents(ctx, author, json.RawMessage(`{"fields":{"name":"bol.pdf"}}`)))
	_, err = v.WriteMetadata(ctx, author)
	require.NoError(t, err)

	return &fixture{
		storages:  storages,
		wallets:   wallets,
		storageID: storageID,
		author:    author,
		vaultID:   vaultID,
		driver:    driver,
	}
}

func (f *fixture) entry() links.Entry {
	return links.Entry{
		RemoteVault:   f.vaultID.String(),
		RemoteStorage: f.storageID,
		RemoteWallet:  f.author.ID.String(),
		Container:     "Document",
	}
}

func TestResolveLocalLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	r := New(f.storages, f.wallets)
	content, err := r.GetLinkedData(ctx, f.entry())
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"name":"bol.pdf"}}`, string(content))
}

func TestResolveRevisionPinnedLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Overwrite the document so the live content diverges from revision 1.
	v := vault.New(f.driver, f.vaultID)
	require.NoError(t, v.LoadMetadata(ctx))
	c, ok := v.Container("Document")
	require.True(t, ok)
	file := c.(*vault.EmbeddedFileContainer)
	require.NoError(t, file.SetContents(ctx, f.author, json.RawMessage(`{"fields":{"name":"amended.pdf"}}`)))
	_, err := v.WriteMetadata(ctx, f.author)
	require.NoError(t, err)

	r := New(f.storages, f.wallets)

	pinned := f.entry()
	rev := int64(1)
	pinned.Revision = &rev
	content, err := r.GetLinkedData(ctx, pinned)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"name":"bol.pdf"}}`, string(content))

	live, err := r.GetLinkedData(ctx, f.entry())
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"name":"amended.pdf"}}`, string(live))
}

func TestResolveHashPin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := New(f.storages, f.wallets)

	content, err := r.GetLinkedData(ctx, f.entry())
	require.NoError(t, err)

	good := f.entry()
	good.Hash = crypt.HashBytes(content).Hex()
	_, err = r.GetLinkedData(ctx, good)
	assert.NoError(t, err)

	bad := f.entry()
	bad.Hash = "0x" + "00000000000000000000000000000000" + "00000000000000000000000000000000"
	_, err = r.GetLinkedData(ctx, bad)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestResolveUnknownStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := New(f.storages, f.wallets)

	entry := f.entry()
	entry.RemoteStorage = uuid.NewString()
	_, err := r.GetLinkedData(ctx, entry)
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)
}

type fakeRemote struct {
	lastEntry links.Entry
	result    json.RawMessage
}

func (f *fakeRemote) GetLinkedData(_ context.Context, entry links.Entry) (json.RawMessage, error) {
	f.lastEntry = entry
	return f.result, nil
}

func TestResolveRemoteLinkForwardsWithoutURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	remote := &fakeRemote{result: json.RawMessage(`{"fields":{}}`)}
	var dialed string
	r := New(f.storages, f.wallets, WithClientFactory(func(url string) RemoteClient {
		dialed = url
		return remote
	}))

	entry := f.entry()
	entry.RemoteURL = "https://peer.example.com:8000"
	content, err := r.GetLinkedData(ctx, entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{}}`, string(content))
	assert.Equal(t, "https://peer.example.com:8000", dialed)
	assert.Empty(t, remote.lastEntry.RemoteURL)
	assert.Equal(t, "Document", remote.lastEntry.Container)
}
