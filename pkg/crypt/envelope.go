package crypt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrNoRecipientKey = errors.New("crypt: no encapsulated key for this identity")
	ErrOpenFailed     = errors.New("crypt: envelope decryption failed")
)

// Envelope is the ciphertext form a container stores per role. The payload
// is sealed once with a random symmetric key; that key is encapsulated
// separately for every recipient public key, so any single authorized
// identity can open the envelope on its own.
type Envelope struct {
	Nonce   []byte            `json:"nonce"`
	Payload []byte            `json:"payload"`
	// Keys maps recipient identity (PublicKey.Hex) to the sealed symmetric key.
	Keys map[string][]byte `json:"keys"`
}

// Seal encrypts content for the given recipients.
func Seal(content []byte, recipients []PublicKey) (*Envelope, error) {
	if len(recipients) == 0 {
		return nil, errors.New("crypt: seal requires at least one recipient")
	}

	var key [32]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("generate envelope key: %w", err)
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	env := &Envelope{
		Nonce:   nonce[:],
		Payload: secretbox.Seal(nil, content, &nonce, &key),
		Keys:    make(map[string][]byte, len(recipients)),
	}

	for _, rec := range recipients {
		rec := rec
		sealed, err := box.SealAnonymous(nil, key[:], &rec.Box, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("encapsulate key for %s: %w", rec.Hex(), err)
		}
		env.Keys[rec.Hex()] = sealed
	}

	return env, nil
}

// Open decrypts an envelope with the wallet's private keys. It fails with
// ErrNoRecipientKey when the envelope carries no encapsulated key for the
// wallet's identity.
func (k *Keypair) Open(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, ErrOpenFailed
	}
	sealed, ok := env.Keys[k.pub.Hex()]
	if !ok {
		return nil, ErrNoRecipientKey
	}

	keyBytes, ok := box.OpenAnonymous(nil, sealed, &k.pub.Box, &k.boxPriv)
	if !ok {
		return nil, ErrOpenFailed
	}
	var key [32]byte
	copy(key[:], keyBytes)

	if len(env.Nonce) != 24 {
		return nil, ErrOpenFailed
	}
	var nonce [24]byte
	copy(nonce[:], env.Nonce)

	content, ok := secretbox.Open(nil, env.Payload, &nonce, &key)
	if !ok {
		return nil, ErrOpenFailed
	}
	return content, nil
}

func derivePublic(priv *[32]byte) []byte {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		// Only reachable for a low-order private scalar, which crypto/rand
		// does not produce.
		panic(fmt.Sprintf("crypt: derive public key: %v", err))
	}
	return pub
}
