package core

import "io"

// ArchiveVault stores serialized event archives under opaque keys.
// Implementations live in internal/vault.
type ArchiveVault interface {
	Put(key string, r io.Reader, size int64) error
	Get(key string, w io.Writer) error
}

// Encryptor encrypts archive payloads before they leave the host.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error
	// IsConfigured reports whether encryption material is available.
	IsConfigured() bool
}

// DecryptionContext holds unlocked key material for reading archives.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// EventService is the orchestration layer for collaborative events: the
// version chain behind every event, the permission registry gating every
// mutation, and the listing/diff/archive projections over them.
type EventService struct {
	store     Store
	vault     ArchiveVault // nil disables archiving
	encryptor Encryptor    // nil stores archives in plaintext
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewEventService creates an EventService with the provided dependencies.
// vault and encryptor may be nil when archiving is not configured.
func NewEventService(store Store, vault ArchiveVault, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *EventService {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &EventService{
		store:     store,
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}
