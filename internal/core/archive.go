package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"calshare/internal/model"
)

// ArchiveDocument is the serialized form of an exported event: the event
// row, its complete version chain oldest-first, and its permission list.
type ArchiveDocument struct {
	Event       model.Event             `json:"event"`
	Versions    []*model.EventVersion   `json:"versions"`
	Permissions []model.PermissionGrant `json:"permissions"`
	ExportedAt  time.Time               `json:"exported_at"`
}

// ExportEvent serializes the event with its full history to the archive
// vault, encrypting when an encryptor is configured. Owner only. Returns
// the vault key the archive was stored under.
func (s *EventService) ExportEvent(eventID, callerID string) (string, error) {
	if s.vault == nil {
		return "", fmt.Errorf("no archive vault configured")
	}

	detail, err := s.requireRole(eventID, callerID, model.RoleOwner)
	if err != nil {
		return "", err
	}

	// limit < 0 fetches the whole chain.
	versions, _, err := s.store.ListVersions(eventID, false, -1, 0)
	if err != nil {
		return "", fmt.Errorf("loading version chain: %w", err)
	}

	doc := ArchiveDocument{
		Event:       detail.Event,
		Versions:    versions,
		Permissions: detail.Permissions,
		ExportedAt:  s.clock.Now(),
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding archive: %w", err)
	}

	key := fmt.Sprintf("events/%s/%s.json", eventID, doc.ExportedAt.UTC().Format("20060102T150405Z"))
	if s.encryptor != nil && s.encryptor.IsConfigured() {
		var sealed bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(payload), &sealed); err != nil {
			return "", fmt.Errorf("encrypting archive: %w", err)
		}
		payload = sealed.Bytes()
		key += ".age"
	}

	if err := s.vault.Put(key, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return "", fmt.Errorf("storing archive: %w", err)
	}

	s.logger.Info("event archived", "event_id", eventID, "key", key, "versions", len(versions))
	return key, nil
}

// ReadArchive streams a stored archive to w, decrypting with dec when the
// key indicates an encrypted payload. dec may be nil for plaintext keys.
func (s *EventService) ReadArchive(key string, w io.Writer, dec DecryptionContext) error {
	if s.vault == nil {
		return fmt.Errorf("no archive vault configured")
	}

	if dec == nil {
		return s.vault.Get(key, w)
	}

	var sealed bytes.Buffer
	if err := s.vault.Get(key, &sealed); err != nil {
		return err
	}
	if err := dec.Decrypt(&sealed, w); err != nil {
		return fmt.Errorf("decrypting archive: %w", err)
	}
	return nil
}
