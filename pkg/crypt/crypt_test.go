package crypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashHexRoundTrip(t *testing.T) {
	h := HashBytes([]byte("shipment manifest"))
	text := h.Hex()

	require.Len(t, text, 66)
	assert.Equal(t, "0x", text[:2])

	parsed, err := ParseHex(text)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)
}

func TestParseHexRejectsShortDigests(t *testing.T) {
	_, err := ParseHex("0xdeadbeef")
	assert.Error(t, err)

	_, err = ParseHex("not hex at all")
	assert.Error(t, err)
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	parsed, err := ParsePublicKey(kp.Public().Hex())
	require.NoError(t, err)
	assert.Equal(t, kp.Public(), parsed)
}

func TestKeypairExportImport(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	restored, err := ImportKeypair(kp.Export())
	require.NoError(t, err)
	assert.Equal(t, kp.Public().Hex(), restored.Public().Hex())

	// A restored keypair must be able to open envelopes sealed for the
	// original identity.
	env, err := Seal([]byte("payload"), []PublicKey{kp.Public()})
	require.NoError(t, err)
	content, err := restored.Open(env)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), content)
}

func TestSealOpenRoundTrip(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	content := []byte(`{"name":"bill of lading"}`)
	env, err := Seal(content, []PublicKey{kp.Public()})
	require.NoError(t, err)

	opened, err := kp.Open(env)
	require.NoError(t, err)
	assert.Equal(t, content, opened)
}

func TestSealMultipleRecipientsAreIndependent(t *testing.T) {
	a, err := NewKeypair()
	require.NoError(t, err)
	b, err := NewKeypair()
	require.NoError(t, err)

	content := []byte("shared cargo data")
	env, err := Seal(content, []PublicKey{a.Public(), b.Public()})
	require.NoError(t, err)

	openedA, err := a.Open(env)
	require.NoError(t, err)
	openedB, err := b.Open(env)
	require.NoError(t, err)

	assert.Equal(t, content, openedA)
	assert.Equal(t, content, openedB)
}

func TestOpenRejectsUnknownIdentity(t *testing.T) {
	owner, err := NewKeypair()
	require.NoError(t, err)
	stranger, err := NewKeypair()
	require.NoError(t, err)

	env, err := Seal([]byte("secret"), []PublicKey{owner.Public()})
	require.NoError(t, err)

	_, err = stranger.Open(env)
	assert.ErrorIs(t, err, ErrNoRecipientKey)
}

func TestSealRequiresRecipients(t *testing.T) {
	_, err := Seal([]byte("content"), nil)
	assert.Error(t, err)
}

func TestSignHashVerify(t *testing.T) {
	kp, err := NewKeypair()
	require.NoError(t, err)

	h := HashString("vault metadata")
	sig := kp.SignHash(h)

	assert.True(t, VerifySignature(kp.Public(), h, sig))
	assert.False(t, VerifySignature(kp.Public(), HashString("tampered"), sig))

	other, err := NewKeypair()
	require.NoError(t, err)
	assert.False(t, VerifySignature(other.Public(), h, sig))
}
