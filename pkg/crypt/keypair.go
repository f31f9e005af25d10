// Package crypt implements the cryptographic capability the vault engine is
// built on: content hashing, wallet keypairs, role envelopes and metadata
// signatures.
//
// A wallet identity carries two keypairs: a Curve25519 pair used for
// envelope key encapsulation and an Ed25519 pair used for signing vault
// metadata. The public identity exchanged in vault role lists is the
// concatenation of both public keys, hex encoded.
package crypt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const (
	// SignatureAlg is recorded in vault signature documents.
	SignatureAlg = "ed25519"

	boxKeySize  = 32
	signKeySize = ed25519.PublicKeySize
)

var ErrBadPublicKey = errors.New("crypt: malformed public key")

// PublicKey is the shareable half of a wallet identity.
type PublicKey struct {
	Box  [boxKeySize]byte
	Sign ed25519.PublicKey
}

// Hex renders the canonical identity string: 32 box key bytes followed by
// 32 signing key bytes, hex encoded.
func (p PublicKey) Hex() string {
	out := make([]byte, 0, boxKeySize+signKeySize)
	out = append(out, p.Box[:]...)
	out = append(out, p.Sign...)
	return hex.EncodeToString(out)
}

// ParsePublicKey is the inverse of PublicKey.Hex.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	if len(raw) != boxKeySize+signKeySize {
		return PublicKey{}, fmt.Errorf("%w: want %d bytes, got %d", ErrBadPublicKey, boxKeySize+signKeySize, len(raw))
	}
	var p PublicKey
	copy(p.Box[:], raw[:boxKeySize])
	p.Sign = ed25519.PublicKey(raw[boxKeySize:])
	return p, nil
}

// Keypair holds the private half of a wallet identity.
type Keypair struct {
	pub      PublicKey
	boxPriv  [boxKeySize]byte
	signPriv ed25519.PrivateKey
}

// NewKeypair generates a fresh identity from crypto/rand.
func NewKeypair() (*Keypair, error) {
	boxPub, boxPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate box keypair: %w", err)
	}
	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing keypair: %w", err)
	}
	kp := &Keypair{
		pub:      PublicKey{Box: *boxPub, Sign: signPub},
		boxPriv:  *boxPriv,
		signPriv: signPriv,
	}
	return kp, nil
}

func (k *Keypair) Public() PublicKey {
	return k.pub
}

// Export renders the private key material as hex for registry persistence.
func (k *Keypair) Export() string {
	out := make([]byte, 0, boxKeySize+ed25519.PrivateKeySize)
	out = append(out, k.boxPriv[:]...)
	out = append(out, k.signPriv...)
	return hex.EncodeToString(out)
}

// ImportKeypair restores a keypair from its Export form.
func ImportKeypair(s string) (*Keypair, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("import keypair: %w", err)
	}
	if len(raw) != boxKeySize+ed25519.PrivateKeySize {
		return nil, fmt.Errorf("import keypair: want %d bytes, got %d", boxKeySize+ed25519.PrivateKeySize, len(raw))
	}
	kp := &Keypair{
		signPriv: ed25519.PrivateKey(raw[boxKeySize:]),
	}
	copy(kp.boxPriv[:], raw[:boxKeySize])

	// The box public key is not recoverable from the private scalar with the
	// nacl API alone, so Export carries only private halves and the public
	// identity is rebuilt here.
	var boxPub [boxKeySize]byte
	copy(boxPub[:], derivePublic(&kp.boxPriv))
	kp.pub = PublicKey{
		Box:  boxPub,
		Sign: kp.signPriv.Public().(ed25519.PublicKey),
	}
	return kp, nil
}

// SignHash produces a hex-encoded detached Ed25519 signature over the digest.
func (k *Keypair) SignHash(h Hash) string {
	return hex.EncodeToString(ed25519.Sign(k.signPriv, h[:]))
}

// VerifySignature checks a detached signature produced by SignHash.
func VerifySignature(pub PublicKey, h Hash, sig string) bool {
	raw, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return ed25519.Verify(pub.Sign, h[:], raw)
}
