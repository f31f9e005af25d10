// Package links implements the compact text protocol used to reference
// content held in another vault, plus the JSON-RPC client that dereferences
// such references against a remote engine.
//
// A link is exchanged as a single string:
//
//	VAULTREF#[https://host:port/]vaultId[#revision][@hash]/storageId/walletId.container[.subFile]
//
// The three UUID tokens appear in that fixed order. The optional revision
// and content-hash pins attach to the vaultId token only, and the container
// (plus optional sub-file) trails the path as dot-separated suffixes.
package links

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Prefix is the fixed sentinel every link string starts with.
const Prefix = "VAULTREF#"

var (
	ErrMalformedLink          = errors.New("links: malformed link")
	ErrRemoteResolutionFailed = errors.New("links: remote resolution failed")
)

// Entry is the structured form of a link string. Entries are immutable once
// created; a changed target is expressed as a new Entry, never an edit.
type Entry struct {
	RemoteVault   string `json:"remoteVault"`
	RemoteStorage string `json:"remoteStorage"`
	RemoteWallet  string `json:"remoteWallet"`
	Container     string `json:"container"`
	Revision      *int64 `json:"revision,omitempty"`
	Hash          string `json:"hash,omitempty"`
	SubFile       string `json:"subFile,omitempty"`
	RemoteURL     string `json:"remoteUrl,omitempty"`
}

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

var linkPattern = regexp.MustCompile(
	`^(https?://[^/\s]+)?/?` +
		`(` + uuidPattern + `)` +
		`(?:#([0-9]+))?` +
		`(?:@(0x[0-9a-fA-F]{64}))?` +
		`/(` + uuidPattern + `)` +
		`/(` + uuidPattern + `)` +
		`/?\.([A-Za-z0-9_-]+)` +
		`(?:\.([A-Za-z0-9_-]+))?$`,
)

// Parse decodes a link string into an Entry. Exactly three UUID tokens must
// be present in vault/storage/wallet order or the link is rejected.
func Parse(s string) (Entry, error) {
	if !strings.HasPrefix(s, Prefix) {
		return Entry{}, fmt.Errorf("%w: missing %s prefix in %q", ErrMalformedLink, Prefix, s)
	}

	match := linkPattern.FindStringSubmatch(strings.TrimPrefix(s, Prefix))
	if match == nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedLink, s)
	}

	// Tokens are kept verbatim so re-serializing reproduces the original
	// string byte for byte, uppercase hex included.
	entry := Entry{
		RemoteURL:     match[1],
		RemoteVault:   match[2],
		Hash:          match[4],
		RemoteStorage: match[5],
		RemoteWallet:  match[6],
		Container:     match[7],
		SubFile:       match[8],
	}

	for _, token := range []string{entry.RemoteVault, entry.RemoteStorage, entry.RemoteWallet} {
		if _, err := uuid.Parse(token); err != nil {
			return Entry{}, fmt.Errorf("%w: bad uuid token %q", ErrMalformedLink, token)
		}
	}

	if match[3] != "" {
		rev, err := strconv.ParseInt(match[3], 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: bad revision %q", ErrMalformedLink, match[3])
		}
		entry.Revision = &rev
	}

	return entry, nil
}

// String renders the canonical link string for the entry. Parse(e.String())
// reproduces e exactly.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(Prefix)
	if e.RemoteURL != "" {
		b.WriteString(e.RemoteURL)
		b.WriteString("/")
	}
	b.WriteString(e.RemoteVault)
	if e.Revision != nil {
		b.WriteString("#")
		b.WriteString(strconv.FormatInt(*e.Revision, 10))
	}
	if e.Hash != "" {
		b.WriteString("@")
		b.WriteString(e.Hash)
	}
	b.WriteString("/")
	b.WriteString(e.RemoteStorage)
	b.WriteString("/")
	b.WriteString(e.RemoteWallet)
	b.WriteString(".")
	b.WriteString(e.Container)
	if e.SubFile != "" {
		b.WriteString(".")
		b.WriteString(e.SubFile)
	}
	return b.String()
}

// IsLink reports whether a raw string carries the link sentinel. Property
// processing uses it to tell unresolved references from embedded values.
func IsLink(s string) bool {
	return strings.HasPrefix(s, Prefix)
}
