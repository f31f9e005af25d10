package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShipChain/engine-sub001/pkg/storage"
)

func TestRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	driver := storage.NewMemoryDriver()

	w, err := Generate()
	require.NoError(t, err)

	reg := NewRegistry(driver)
	require.NoError(t, reg.Add(ctx, w))

	// A second registry over the same driver must load the persisted form.
	reg2 := NewRegistry(driver)
	loaded, err := reg2.Get(ctx, w.ID.String())
	require.NoError(t, err)
	assert.Equal(t, w.ID, loaded.ID)
	assert.Equal(t, w.PublicKey(), loaded.PublicKey())
}

func TestRegistryUnknownWallet(t *testing.T) {
	reg := NewRegistry(storage.NewMemoryDriver())
	_, err := reg.Get(context.Background(), "11111111-2222-3333-4444-555555555555")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}
