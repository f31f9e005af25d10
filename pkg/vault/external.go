package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ShipChain/engine-sub001/pkg/crypt"
	"github.com/ShipChain/engine-sub001/pkg/storage"
	"github.com/ShipChain/engine-sub001/pkg/wallet"
)

// dayKey is the bucket format external daily lists are filed under.
const dayKeyLayout = "20060102"

// ExternalListDailyContainer appends JSON entries into per-day blobs stored
// outside the metadata document. Tracking and telemetry streams use this
// variant: the metadata only lists which day buckets exist.
type ExternalListDailyContainer struct {
	containerBase
	days  map[string][]json.RawMessage
	dirty map[string]bool
	files []string
}

func newExternalListDaily(v *Vault, name string, roles []string) *ExternalListDailyContainer {
	return &ExternalListDailyContainer{
		containerBase: containerBase{vault: v, name: name, roles: roles},
		days:          make(map[string][]json.RawMessage),
		dirty:         make(map[string]bool),
	}
}

func (c *ExternalListDailyContainer) Type() ContainerType {
	return TypeExternalListDaily
}

// Append files an entry under today's bucket. If today's blob already
// exists on storage it is loaded first so prior entries survive.
func (c *ExternalListDailyContainer) Append(ctx context.Context, author *wallet.Wallet, item interface{}) error {
	day := time.Now().UTC().Format(dayKeyLayout)
	if err := c.loadDayIfPersisted(ctx, author, day); err != nil {
		return err
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	c.days[day] = append(c.days[day], raw)
	c.dirty[day] = true

	return c.vault.UpdateLedger(ctx, author, LedgerEntry{
		Action: "container.externallist.append",
		Params: map[string]interface{}{"container": c.name, "day": day},
		Output: crypt.HashBytes(raw).Hex(),
	})
}

// GetDay decrypts a single day bucket. A day with no blob fails with
// ErrRevisionNotFound, which is also how revision-by-date reads surface
// missing snapshots.
func (c *ExternalListDailyContainer) GetDay(ctx context.Context, w *wallet.Wallet, day string) ([]json.RawMessage, error) {
	if items, ok := c.days[day]; ok {
		out := make([]json.RawMessage, len(items))
		copy(out, items)
		return out, nil
	}
	if !c.hasFile(day) {
		return nil, fmt.Errorf("%w: container %s day %s", ErrRevisionNotFound, c.name, day)
	}
	items, err := c.readDay(ctx, w, day)
	if err != nil {
		return nil, err
	}
	c.days[day] = items
	return items, nil
}

// DecryptContents concatenates every day bucket in ascending day order.
func (c *ExternalListDailyContainer) DecryptContents(ctx context.Context, w *wallet.Wallet) ([]json.RawMessage, error) {
	dayKeys := make(map[string]struct{}, len(c.files)+len(c.days))
	for _, day := range c.files {
		dayKeys[day] = struct{}{}
	}
	for day := range c.days {
		dayKeys[day] = struct{}{}
	}
	ordered := make([]string, 0, len(dayKeys))
	for day := range dayKeys {
		ordered = append(ordered, day)
	}
	sort.Strings(ordered)

	var all []json.RawMessage
	for _, day := range ordered {
		items, err := c.GetDay(ctx, w, day)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

func (c *ExternalListDailyContainer) hasFile(day string) bool {
	for _, f := range c.files {
		if f == day {
			return true
		}
	}
	return false
}

func (c *ExternalListDailyContainer) loadDayIfPersisted(ctx context.Context, w *wallet.Wallet, day string) error {
	if _, loaded := c.days[day]; loaded || !c.hasFile(day) {
		return nil
	}
	items, err := c.readDay(ctx, w, day)
	if err != nil {
		return err
	}
	c.days[day] = items
	return nil
}

func (c *ExternalListDailyContainer) readDay(ctx context.Context, w *wallet.Wallet, day string) ([]json.RawMessage, error) {
	data, err := c.vault.driver.GetFile(ctx, c.vault.externalPath(c.name, day))
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: container %s day %s", ErrRevisionNotFound, c.name, day)
	}
	if err != nil {
		return nil, fmt.Errorf("read container %s day %s: %w", c.name, day, err)
	}
	sealed, err := decodeEnvelopes(data)
	if err != nil {
		return nil, err
	}
	content, err := c.openWithWallet(sealed, w)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, fmt.Errorf("%w: container %s day %s: %v", ErrParseFailure, c.name, day, err)
	}
	return items, nil
}

func (c *ExternalListDailyContainer) buildMeta(ctx context.Context) (*ContainerMeta, error) {
	for day, dirty := range c.dirty {
		if !dirty {
			continue
		}
		payload, err := json.Marshal(c.days[day])
		if err != nil {
			return nil, fmt.Errorf("encode container %s day %s: %w", c.name, day, err)
		}
		sealed, err := c.sealForRoles(payload)
		if err != nil {
			return nil, err
		}
		blob, err := json.Marshal(sealed)
		if err != nil {
			return nil, fmt.Errorf("encode container %s day %s: %w", c.name, day, err)
		}
		if err := c.vault.driver.PutFile(ctx, c.vault.externalPath(c.name, day), blob); err != nil {
			return nil, fmt.Errorf("persist container %s day %s: %w", c.name, day, err)
		}
		if !c.hasFile(day) {
			c.files = append(c.files, day)
		}
		c.dirty[day] = false
	}
	sort.Strings(c.files)

	m := c.baseMeta(TypeExternalListDaily)
	m.Files = append([]string(nil), c.files...)
	return m, nil
}

func (c *ExternalListDailyContainer) loadMeta(m *ContainerMeta) error {
	c.loadBase(m)
	c.files = append([]string(nil), m.Files...)
	c.days = make(map[string][]json.RawMessage)
	c.dirty = make(map[string]bool)
	return nil
}

// ExternalFileMultiContainer stores independently encrypted named sub-files
// outside the metadata document.
type ExternalFileMultiContainer struct {
	containerBase
	contents map[string][]byte
	dirty    map[string]bool
	files    []string
}

func newExternalFileMulti(v *Vault, name string, roles []string) *ExternalFileMultiContainer {
	return &ExternalFileMultiContainer{
		containerBase: containerBase{vault: v, name: name, roles: roles},
		contents:      make(map[string][]byte),
		dirty:         make(map[string]bool),
	}
}

func (c *ExternalFileMultiContainer) Type() ContainerType {
	return TypeExternalFileMulti
}

// SetSubFile replaces the content stored under subFile.
func (c *ExternalFileMultiContainer) SetSubFile(ctx context.Context, author *wallet.Wallet, subFile string, content []byte) error {
	c.contents[subFile] = append([]byte(nil), content...)
	c.dirty[subFile] = true

	return c.vault.UpdateLedger(ctx, author, LedgerEntry{
		Action: "container.filemulti.setsubfile",
		Params: map[string]interface{}{"container": c.name, "subFile": subFile},
		Output: crypt.HashBytes(content).Hex(),
	})
}

// SubFiles returns the persisted sub-file names in sorted order.
func (c *ExternalFileMultiContainer) SubFiles() []string {
	return append([]string(nil), c.files...)
}

// DecryptSubFile returns the plaintext of one sub-file.
func (c *ExternalFileMultiContainer) DecryptSubFile(ctx context.Context, w *wallet.Wallet, subFile string) ([]byte, error) {
	if content, ok := c.contents[subFile]; ok {
		return append([]byte(nil), content...), nil
	}

	data, err := c.vault.driver.GetFile(ctx, c.vault.externalPath(c.name, subFile))
	if errors.Is(err, storage.ErrFileNotFound) {
		return nil, fmt.Errorf("%w: container %s subFile %s", ErrNotFound, c.name, subFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read container %s subFile %s: %w", c.name, subFile, err)
	}
	sealed, err := decodeEnvelopes(data)
	if err != nil {
		return nil, err
	}
	content, err := c.openWithWallet(sealed, w)
	if err != nil {
		return nil, err
	}
	c.contents[subFile] = content
	return append([]byte(nil), content...), nil
}

func (c *ExternalFileMultiContainer) buildMeta(ctx context.Context) (*ContainerMeta, error) {
	for subFile, dirty := range c.dirty {
		if !dirty {
			continue
		}
		sealed, err := c.sealForRoles(c.contents[subFile])
		if err != nil {
			return nil, err
		}
		blob, err := json.Marshal(sealed)
		if err != nil {
			return nil, fmt.Errorf("encode container %s subFile %s: %w", c.name, subFile, err)
		}
		if err := c.vault.driver.PutFile(ctx, c.vault.externalPath(c.name, subFile), blob); err != nil {
			return nil, fmt.Errorf("persist container %s subFile %s: %w", c.name, subFile, err)
		}
		if !c.hasFile(subFile) {
			c.files = append(c.files, subFile)
		}
		c.dirty[subFile] = false
	}
	sort.Strings(c.files)

	m := c.baseMeta(TypeExternalFileMulti)
	m.Files = append([]string(nil), c.files...)
	return m, nil
}

func (c *ExternalFileMultiContainer) hasFile(subFile string) bool {
	for _, f := range c.files {
		if f == subFile {
			return true
		}
	}
	return false
}

func (c *ExternalFileMultiContainer) loadMeta(m *ContainerMeta) error {
	c.loadBase(m)
	c.files = append([]string(nil), m.Files...)
	c.contents = make(map[string][]byte)
	c.dirty = make(map[string]bool)
	return nil
}
