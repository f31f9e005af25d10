package vault

import (
	"encoding/json"
	"fmt"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/links"
)

// Metadata is the persisted vault document. Everything except Signed is
// covered by the signature; canonical form is the JSON marshalling of this
// struct with Signed cleared (Go marshals struct fields in declaration
// order and map keys sorted, so remarshalling is deterministic).
type Metadata struct {
	IsShipChainVault bool                      `json:"isShipChainVault"`
	ID               string                    `json:"id"`
	Sequence         int64                     `json:"sequence"`
	Roles            map[string][]string       `json:"roles"`
	Containers       map[string]*ContainerMeta `json:"containers"`
	Signed           *Signature                `json:"signed,omitempty"`
}

// ContainerMeta is the stored form of one container. Embedded variants
// carry per-role ciphertext inline; link containers carry plaintext
// pointers; external variants carry the list of persisted blob keys.
type ContainerMeta struct {
	ContainerType     string                     `json:"container_type"`
	Roles             []string                   `json:"roles"`
	EncryptedContents map[string]*crypt.Envelope `json:"encrypted_contents,omitempty"`
	LinkEntries       map[string]links.Entry     `json:"linkEntries,omitempty"`
	LinkOrder         []string                   `json:"linkOrder,omitempty"`
	Files             []string                   `json:"files,omitempty"`
	IsPrimitive       bool                       `json:"isPrimitive,omitempty"`
}

// Signature binds a metadata document to its author.
type Signature struct {
	Author    string `json:"author"`
	Hash      string `json:"hash"`
	At        string `json:"at"`
	Signature string `json:"signature"`
	Alg       string `json:"alg"`
}

// LedgerEntry records one mutating action. Entries are append-only and live
// encrypted inside the reserved ledger container.
type LedgerEntry struct {
	Action string                 `json:"action"`
	Params map[string]interface{} `json:"params,omitempty"`
	Output string                 `json:"output,omitempty"`
	At     string                 `json:"at"`
}

// canonicalHash computes the content hash the signature covers.
func (m *Metadata) canonicalHash() (crypt.Hash, error) {
	doc := *m
	doc.Signed = nil
	payload, err := json.Marshal(&doc)
	if err != nil {
		return crypt.Hash{}, fmt.Errorf("canonicalize metadata: %w", err)
	}
	return crypt.HashBytes(payload), nil
}
