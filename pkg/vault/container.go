package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// ContainerType tags the five container variants.
type ContainerType string

const (
	TypeEmbeddedFile      ContainerType = "embedded_file"
	TypeEmbeddedList      ContainerType = "embedded_list"
	TypeLink              ContainerType = "link"
	TypeExternalListDaily ContainerType = "external_list_daily"
	TypeExternalFileMulti ContainerType = "external_file_multi"
)

// Container is the unit of encryption and linkage inside a vault. Concrete
// variants add their own content accessors; the vault drives persistence
// through buildMeta/loadMeta during WriteMetadata/LoadMetadata.
type Container interface {
	Name() string
	Type() ContainerType
	Roles() []string

	buildMeta(ctx context.Context) (*ContainerMeta, error)
	loadMeta(m *ContainerMeta) error
}

type containerBase struct {
	vault       *Vault
	name        string
	roles       []string
	isPrimitive bool
}

func (c *containerBase) Name() string {
	return c.name
}

func (c *containerBase) Roles() []string {
	return c.roles
}

// AuthorizeRole adds a role to the set allowed to decrypt this container.
// It does not re-encrypt content already sealed for other roles; each
// encryption pass decides its own targets.
func (c *containerBase) AuthorizeRole(role string) {
	for _, r := range c.roles {
		if r == role {
			return
		}
	}
	c.roles = append(c.roles, role)
}

// MarkPrimitive flags the container as backing a typed primitive.
func (c *containerBase) MarkPrimitive() {
	c.isPrimitive = true
}

func (c *containerBase) baseMeta(t ContainerType) *ContainerMeta {
	roles := make([]string, len(c.roles))
	copy(roles, c.roles)
	return &ContainerMeta{
		ContainerType: string(t),
		Roles:         roles,
		IsPrimitive:   c.isPrimitive,
	}
}

func (c *containerBase) loadBase(m *ContainerMeta) {
	c.roles = append([]string(nil), m.Roles...)
	c.isPrimitive = m.IsPrimitive
}

// sealForRoles produces the per-role ciphertext map: every role authorized
// on the container is sealed independently, so holding any one role key is
// enough to decrypt.
func (c *containerBase) sealForRoles(content []byte) (map[string]*crypt.Envelope, error) {
	sealed := make(map[string]*crypt.Envelope)
	for _, role := range c.roles {
		recipients := c.vault.roleKeys(role)
		if len(recipients) == 0 {
			continue
		}
		env, err := crypt.Seal(content, recipients)
		if err != nil {
			return nil, fmt.Errorf("seal container %s for role %s: %w", c.name, role, err)
		}
		sealed[role] = env
	}
	if len(sealed) == 0 {
		return nil, fmt.Errorf("container %s: no role has any member keys", c.name)
	}
	return sealed, nil
}

// openWithWallet walks the wallet's authorized roles in container role
// order; the first role with a present ciphertext that opens wins.
func (c *containerBase) openWithWallet(sealed map[string]*crypt.Envelope, w *wallet.Wallet) ([]byte, error) {
	authorized := c.vault.authorizedRoles(c.roles, w.PublicKey())
	if len(authorized) == 0 {
		return nil, ErrUnauthorized
	}

	var lastErr error
	for _, role := range authorized {
		env, ok := sealed[role]
		if !ok {
			continue
		}
		content, err := w.Keypair.Open(env)
		if err != nil {
			lastErr = err
			continue
		}
		if isEmptyContent(content) {
			return nil, fmt.Errorf("%w: container %s via role %s", ErrEmptyContainer, c.name, role)
		}
		return content, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, lastErr)
	}
	return nil, ErrUnauthorized
}

// isEmptyContent treats nothing, JSON null and empty collections as a
// corrupt decryption result.
func isEmptyContent(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	switch {
	case len(trimmed) == 0:
		return true
	case bytes.Equal(trimmed, []byte("null")):
		return true
	case bytes.Equal(trimmed, []byte("[]")):
		return true
	case bytes.Equal(trimmed, []byte("{}")):
		return true
	}
	return false
}

// decodeEnvelopes is shared by the external variants, whose blobs persist
// the same role→ciphertext map shape as embedded metadata.
func decodeEnvelopes(data []byte) (map[string]*crypt.Envelope, error) {
	var sealed map[string]*crypt.Envelope
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if sealed == nil {
		return nil, errors.New("vault: external blob carried no ciphertext")
	}
	return sealed, nil
}
