package vault

import "errors"

// Error taxonomy surfaced to the RPC boundary. Nothing here is retried
// inside the engine; callers decide what a failure means for them.
var (
	ErrAlreadyInitialized = errors.New("vault: metadata already initialized")
	ErrNotFound           = errors.New("vault: not found")
	ErrInvalidFormat      = errors.New("vault: metadata is not a valid ShipChain vault")
	ErrNotInitialized     = errors.New("vault: metadata not loaded")

	ErrUnauthorized = errors.New("vault: wallet holds no authorized role")

	// ErrNoContents marks a container that has never been written; callers
	// may treat it as an empty value. ErrEmptyContainer is different: sealed
	// content that decrypts to nothing is corruption and must surface.
	ErrNoContents     = errors.New("vault: container has no contents")
	ErrEmptyContainer = errors.New("vault: container decrypted to nothing")
	ErrParseFailure   = errors.New("vault: container content failed to parse")
	ErrLoadRequired   = errors.New("vault: existing contents must be loaded before append")

	// ErrEncryptionNotSupported guards link containers: pointer data is
	// stored plaintext and must never be mistaken for protected content.
	ErrEncryptionNotSupported = errors.New("vault: link containers do not support encryption")

	ErrLinkNotFound     = errors.New("vault: link not found")
	ErrRevisionNotFound = errors.New("vault: revision not found")
	ErrContainerExists  = errors.New("vault: container already exists")
	ErrVerifyFailed     = errors.New("vault: signature verification failed")
)
