package crypt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Hash is a sha256 digest. The canonical textual form is "0x" followed by
// 64 lowercase hex digits, which is the form embedded in link strings and
// vault signatures.
type Hash [sha256.Size]byte

func HashBytes(b []byte) Hash {
	return sha256.Sum256(b)
}

func HashString(s string) Hash {
	return HashBytes([]byte(s))
}

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHex accepts the canonical "0x"-prefixed form as well as bare hex.
func ParseHex(s string) (Hash, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Hash{}, fmt.Errorf("parse hash %q: %w", s, err)
	}
	if len(raw) != sha256.Size {
		return Hash{}, fmt.Errorf("parse hash %q: want %d bytes, got %d", s, sha256.Size, len(raw))
	}
	var h Hash
	copy(h[:], raw)
	return h, nil
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHex(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
