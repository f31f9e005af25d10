// Package vault implements the role-encrypted, tamper-evident document
// store at the heart of the engine. A vault is a UUID-addressed bundle of
// named containers persisted as one signed metadata document plus external
// blobs, written through a storage driver.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/links"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// LedgerContainer is the reserved container name the ledger lives under.
const LedgerContainer = "ledger"

// DefaultRole is the role every vault starts with; the initializing author
// is its first member.
const DefaultRole = "owners"

// Resolver dereferences link entries, either against local storage or a
// remote engine. The concrete implementation is injected to keep this
// package free of a dependency cycle with the resolution machinery.
type Resolver interface {
	GetLinkedData(ctx context.Context, entry links.Entry) (json.RawMessage, error)
}

// Vault mediates role-key encryption, the ledger and metadata signing for
// one vault id. Each Vault value owns its in-memory container set; nothing
// is shared between concurrently opened instances of the same id, and two
// concurrent load→mutate→write sequences race with last-writer-wins.
type Vault struct {
	id         uuid.UUID
	driver     storage.Driver
	log        *logrus.Logger
	resolver   Resolver
	meta       *Metadata
	containers map[string]Container
}

// Option configures a Vault at construction.
type Option func(*Vault)

func WithLogger(log *logrus.Logger) Option {
	return func(v *Vault) { v.log = log }
}

func WithResolver(r Resolver) Option {
	return func(v *Vault) { v.resolver = r }
}

// New builds a handle for a vault id over a storage driver. No I/O happens
// until InitializeMetadata or LoadMetadata.
func New(driver storage.Driver, id uuid.UUID, opts ...Option) *Vault {
	v := &Vault{
		id:         id,
		driver:     driver,
		log:        logrus.New(),
		containers: make(map[string]Container),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Vault) ID() uuid.UUID {
	return v.id
}

// Sequence returns the revision counter of the loaded metadata.
func (v *Vault) Sequence() int64 {
	if v.meta == nil {
		return 0
	}
	return v.meta.Sequence
}

func (v *Vault) metaPath() string {
	return v.id.String() + "/meta.json"
}

func (v *Vault) histSeqPath(seq int64) string {
	return v.id.String() + "/hist/" + strconv.FormatInt(seq, 10) + ".json"
}

func (v *Vault) histDayPath(day string) string {
	return v.id.String() + "/hist/day/" + day + ".json"
}

func (v *Vault) externalPath(container, key string) string {
	return v.id.String() + "/" + container + "/" + key + ".json"
}

// InitializeMetadata creates fresh metadata with the author as the first
// member of the owners role. It refuses to clobber a vault that already
// exists on storage.
func (v *Vault) InitializeMetadata(ctx context.Context, author *wallet.Wallet) error {
	exists, err := v.driver.FileExists(ctx, v.metaPath())
	if err != nil {
		return fmt.Errorf("check vault %s: %w", v.id, err)
	}
	if exists {
		return fmt.Errorf("%w: vault %s", ErrAlreadyInitialized, v.id)
	}

	v.meta = &Metadata{
		IsShipChainVault: true,
		ID:               v.id.String(),
		Roles:            map[string][]string{DefaultRole: {author.PublicKey()}},
		Containers:       make(map[string]*ContainerMeta),
	}
	v.containers = map[string]Container{
		LedgerContainer: newEmbeddedList(v, LedgerContainer, []string{DefaultRole}),
	}

	return v.UpdateLedger(ctx, author, LedgerEntry{
		Action: "vault.initialize",
		Params: map[string]interface{}{"author": author.ID.String()},
	})
}

// LoadMetadata reads and parses the persisted metadata document.
func (v *Vault) LoadMetadata(ctx context.Context) error {
	data, err := v.driver.GetFile(ctx, v.metaPath())
	if errors.Is(err, storage.ErrFileNotFound) {
		return fmt.Errorf("%w: vault %s", ErrNotFound, v.id)
	}
	if err != nil {
		return fmt.Errorf("load vault %s: %w", v.id, err)
	}

	var doc Metadata
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return v.loadFromDoc(&doc)
}

func (v *Vault) loadFromDoc(doc *Metadata) error {
	if !doc.IsShipChainVault {
		return fmt.Errorf("%w: missing isShipChainVault marker", ErrInvalidFormat)
	}
	// Sparse documents may omit the role table or container map entirely;
	// mutation paths rely on both being writable.
	if doc.Roles == nil {
		doc.Roles = make(map[string][]string)
	}
	if doc.Containers == nil {
		doc.Containers = make(map[string]*ContainerMeta)
	}

	containers := make(map[string]Container, len(doc.Containers))
	for name, cm := range doc.Containers {
		var c Container
		switch ContainerType(cm.ContainerType) {
		case TypeEmbeddedFile:
			c = newEmbeddedFile(v, name, nil)
		case TypeEmbeddedList:
			c = newEmbeddedList(v, name, nil)
		case TypeLink:
			c = newLink(v, name, nil)
		case TypeExternalListDaily:
			c = newExternalListDaily(v, name, nil)
		case TypeExternalFileMulti:
			c = newExternalFileMulti(v, name, nil)
		default:
			return fmt.Errorf("%w: unknown container type %q", ErrInvalidFormat, cm.ContainerType)
		}
		if err := c.loadMeta(cm); err != nil {
			return err
		}
		containers[name] = c
	}

	v.meta = doc
	v.containers = containers
	return nil
}

// WriteMetadata encrypts every container, assembles the combined document,
// signs its content hash with the author's key and persists document,
// signature and a historical snapshot.
func (v *Vault) WriteMetadata(ctx context.Context, author *wallet.Wallet) (*Signature, error) {
	if v.meta == nil {
		return nil, ErrNotInitialized
	}

	// Build every container before touching the sequence so a failed build
	// leaves the in-memory revision counter in step with storage.
	built := make(map[string]*ContainerMeta, len(v.containers))
	for name, c := range v.containers {
		cm, err := c.buildMeta(ctx)
		if err != nil {
			return nil, fmt.Errorf("build container %s: %w", name, err)
		}
		built[name] = cm
	}
	v.meta.Sequence++
	for name, cm := range built {
		v.meta.Containers[name] = cm
	}

	h, err := v.meta.canonicalHash()
	if err != nil {
		return nil, err
	}
	sig := &Signature{
		Author:    author.PublicKey(),
		Hash:      h.Hex(),
		At:        time.Now().UTC().Format(time.RFC3339),
		Signature: author.Keypair.SignHash(h),
		Alg:       crypt.SignatureAlg,
	}
	v.meta.Signed = sig

	payload, err := json.Marshal(v.meta)
	if err != nil {
		return nil, fmt.Errorf("encode vault %s: %w", v.id, err)
	}
	if err := v.driver.PutFile(ctx, v.metaPath(), payload); err != nil {
		return nil, fmt.Errorf("persist vault %s: %w", v.id, err)
	}
	if err := v.driver.PutFile(ctx, v.histSeqPath(v.meta.Sequence), payload); err != nil {
		return nil, fmt.Errorf("persist vault %s snapshot: %w", v.id, err)
	}
	day := time.Now().UTC().Format(dayKeyLayout)
	if err := v.driver.PutFile(ctx, v.histDayPath(day), payload); err != nil {
		return nil, fmt.Errorf("persist vault %s day snapshot: %w", v.id, err)
	}

	v.log.WithFields(logrus.Fields{
		"vault":    v.id.String(),
		"sequence": v.meta.Sequence,
		"hash":     sig.Hash,
	}).Info("vault metadata written")
	return sig, nil
}

// Authorize appends a public key to a role's member list. Content already
// sealed for other roles is not re-encrypted; each container decides its
// targets at encryption time.
func (v *Vault) Authorize(ctx context.Context, author *wallet.Wallet, role, publicKey string) error {
	if v.meta == nil {
		return ErrNotInitialized
	}
	for _, existing := range v.meta.Roles[role] {
		if existing == publicKey {
			return nil
		}
	}
	v.meta.Roles[role] = append(v.meta.Roles[role], publicKey)

	return v.UpdateLedger(ctx, author, LedgerEntry{
		Action: "vault.authorize",
		Params: map[string]interface{}{"role": role, "key": publicKey},
	})
}

// UpdateLedger appends one entry to the reserved ledger container. Entries
// about the ledger container itself are suppressed so appending can never
// recurse.
func (v *Vault) UpdateLedger(ctx context.Context, author *wallet.Wallet, entry LedgerEntry) error {
	if v.meta == nil {
		return ErrNotInitialized
	}
	if name, ok := entry.Params["container"].(string); ok && name == LedgerContainer {
		return nil
	}
	if entry.At == "" {
		entry.At = time.Now().UTC().Format(time.RFC3339)
	}

	c, ok := v.containers[LedgerContainer]
	if !ok {
		lc := newEmbeddedList(v, LedgerContainer, []string{DefaultRole})
		v.containers[LedgerContainer] = lc
		c = lc
	}
	ledger, ok := c.(*EmbeddedListContainer)
	if !ok {
		return fmt.Errorf("%w: ledger container has type %s", ErrInvalidFormat, c.Type())
	}
	if !ledger.loaded {
		if err := ledger.Load(author); err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	ledger.items = append(ledger.items, raw)
	ledger.modified = true
	return nil
}

// Ledger decrypts the full ledger sequence for an authorized wallet.
func (v *Vault) Ledger(w *wallet.Wallet) ([]LedgerEntry, error) {
	c, ok := v.containers[LedgerContainer]
	if !ok {
		return nil, nil
	}
	ledger, ok := c.(*EmbeddedListContainer)
	if !ok {
		return nil, fmt.Errorf("%w: ledger container has type %s", ErrInvalidFormat, c.Type())
	}
	raws, err := ledger.DecryptContents(w)
	if err != nil {
		return nil, err
	}
	entries := make([]LedgerEntry, 0, len(raws))
	for _, raw := range raws {
		var e LedgerEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("%w: ledger entry: %v", ErrParseFailure, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Verify recomputes the metadata hash from the persisted document and
// checks it against the stored signature. Embedded and link containers are
// verified transitively through this top-level signature.
func (v *Vault) Verify(ctx context.Context) (bool, error) {
	data, err := v.driver.GetFile(ctx, v.metaPath())
	if errors.Is(err, storage.ErrFileNotFound) {
		return false, fmt.Errorf("%w: vault %s", ErrNotFound, v.id)
	}
	if err != nil {
		return false, err
	}

	var doc Metadata
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if doc.Signed == nil {
		return false, fmt.Errorf("%w: document is unsigned", ErrVerifyFailed)
	}

	h, err := doc.canonicalHash()
	if err != nil {
		return false, err
	}
	if h.Hex() != doc.Signed.Hash {
		return false, nil
	}
	pub, err := crypt.ParsePublicKey(doc.Signed.Author)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	return crypt.VerifySignature(pub, h, doc.Signed.Signature), nil
}

// DeleteEverything removes all persisted blobs for this vault id. This is
// the explicit wipe path, not part of audit-preserving operation.
func (v *Vault) DeleteEverything(ctx context.Context) error {
	if err := v.driver.RemoveDirectory(ctx, v.id.String(), true); err != nil {
		return fmt.Errorf("wipe vault %s: %w", v.id, err)
	}
	v.meta = nil
	v.containers = make(map[string]Container)
	return nil
}

// CreateContainer adds a named container of the given variant with the
// default owners role.
func (v *Vault) CreateContainer(name string, t ContainerType) (Container, error) {
	if v.meta == nil {
		return nil, ErrNotInitialized
	}
	if _, exists := v.containers[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrContainerExists, name)
	}

	roles := []string{DefaultRole}
	var c Container
	switch t {
	case TypeEmbeddedFile:
		c = newEmbeddedFile(v, name, roles)
	case TypeEmbeddedList:
		c = newEmbeddedList(v, name, roles)
	case TypeLink:
		c = newLink(v, name, roles)
	case TypeExternalListDaily:
		c = newExternalListDaily(v, name, roles)
	case TypeExternalFileMulti:
		c = newExternalFileMulti(v, name, roles)
	default:
		return nil, fmt.Errorf("unknown container type %q", t)
	}
	v.containers[name] = c
	return c, nil
}

// Container returns a container by name.
func (v *Vault) Container(name string) (Container, bool) {
	c, ok := v.containers[name]
	return c, ok
}

// ContainerNames lists the current container set.
func (v *Vault) ContainerNames() []string {
	names := make([]string, 0, len(v.containers))
	for name := range v.containers {
		names = append(names, name)
	}
	return names
}

// GetContainerContent decrypts a container's current content with the
// wallet and optionally extracts a sub-file or field from it.
func (v *Vault) GetContainerContent(ctx context.Context, w *wallet.Wallet, name, subFile string) (json.RawMessage, error) {
	c, ok := v.containers[name]
	if !ok {
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, name)
	}

	switch c := c.(type) {
	case *EmbeddedFileContainer:
		content, err := c.DecryptContents(w)
		if err != nil {
			return nil, err
		}
		return extractSubFile(asJSON(content), name, subFile)
	case *EmbeddedListContainer:
		items, err := c.DecryptContents(w)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		return extractSubFile(raw, name, subFile)
	case *ExternalListDailyContainer:
		items, err := c.DecryptContents(ctx, w)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	case *ExternalFileMultiContainer:
		if subFile == "" {
			return nil, fmt.Errorf("%w: container %s requires a subFile", ErrNotFound, name)
		}
		content, err := c.DecryptSubFile(ctx, w, subFile)
		if err != nil {
			return nil, err
		}
		return asJSON(content), nil
	case *LinkContainer:
		return json.Marshal(map[string]interface{}{
			"linkEntries": c.entries,
			"linkOrder":   c.order,
		})
	default:
		return nil, fmt.Errorf("%w: container %s", ErrNotFound, name)
	}
}

// GetHistoricalDataBySequence reads a container's content out of the
// snapshot persisted at a given revision number.
func (v *Vault) GetHistoricalDataBySequence(ctx context.Context, w *wallet.Wallet, name string, sequence int64, subFile string) (json.RawMessage, error) {
	data, err := v.driver.GetFile(ctx, v.histSeqPath(sequence))
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: vault %s sequence %d", ErrRevisionNotFound, v.id, sequence)
	}
	if err != nil {
		return nil, err
	}
	return v.historicalContent(ctx, w, data, name, subFile)
}

// GetHistoricalDataByDate reads a container's content for a day bucket.
// Daily-list containers resolve straight to their day blob; other variants
// resolve through the day's metadata snapshot.
func (v *Vault) GetHistoricalDataByDate(ctx context.Context, w *wallet.Wallet, name, date, subFile string) (json.RawMessage, error) {
	day := strings.ReplaceAll(date, "-", "")

	if c, ok := v.containers[name]; ok {
		if daily, ok := c.(*ExternalListDailyContainer); ok {
			items, err := daily.GetDay(ctx, w, day)
			if err != nil {
				return nil, err
			}
			return json.Marshal(items)
		}
	}

	data, err := v.driver.GetFile(ctx, v.histDayPath(day))
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: vault %s date %s", ErrRevisionNotFound, v.id, date)
	}
	if err != nil {
		return nil, err
	}
	return v.historicalContent(ctx, w, data, name, subFile)
}

func (v *Vault) historicalContent(ctx context.Context, w *wallet.Wallet, snapshot []byte, name, subFile string) (json.RawMessage, error) {
	var doc Metadata
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	hist := New(v.driver, v.id, WithLogger(v.log))
	if err := hist.loadFromDoc(&doc); err != nil {
		return nil, err
	}
	return hist.GetContainerContent(ctx, w, name, subFile)
}

// roleKeys returns the parsed member public keys of a role.
func (v *Vault) roleKeys(role string) []crypt.PublicKey {
	if v.meta == nil {
		return nil
	}
	members := v.meta.Roles[role]
	keys := make([]crypt.PublicKey, 0, len(members))
	for _, member := range members {
		pub, err := crypt.ParsePublicKey(member)
		if err != nil {
			v.log.WithField("role", role).WithError(err).Warn("skipping malformed role key")
			continue
		}
		keys = append(keys, pub)
	}
	return keys
}

// authorizedRoles filters the container's role list down to the roles the
// given identity belongs to, preserving container role order.
func (v *Vault) authorizedRoles(containerRoles []string, publicKey string) []string {
	if v.meta == nil {
		return nil
	}
	var out []string
	for _, role := range containerRoles {
		for _, member := range v.meta.Roles[role] {
			if member == publicKey {
				out = append(out, role)
				break
			}
		}
	}
	return out
}

// asJSON passes valid JSON through and wraps anything else as a string.
func asJSON(content []byte) json.RawMessage {
	if json.Valid(content) {
		return json.RawMessage(content)
	}
	encoded, err := json.Marshal(string(content))
	if err != nil {
		return nil
	}
	return json.RawMessage(encoded)
}

// extractSubFile picks a named field out of an object payload when a link
// addresses container.subFile on a non-multi-file container.
func extractSubFile(raw json.RawMessage, name, subFile string) (json.RawMessage, error) {
	if subFile == "" {
		return raw, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: container %s has no subFile %s", ErrNotFound, name, subFile)
	}
	field, ok := obj[subFile]
	if !ok {
		return nil, fmt.Errorf("%w: container %s has no subFile %s", ErrNotFound, name, subFile)
	}
	return field, nil
}
