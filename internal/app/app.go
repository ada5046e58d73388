// Package app is the application layer between the CLI and the event
// service. It constructs all dependencies from config and resolves raw
// usernames from the command line into user IDs before delegating.
package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"calshare/internal/auth"
	"calshare/internal/config"
	"calshare/internal/core"
	"calshare/internal/database"
	"calshare/internal/encryption"
	"calshare/internal/model"
	"calshare/internal/vault"

	"github.com/google/uuid"
)

// App wires the store, vault, encryptor, and service together for one
// CLI invocation. The caller must call Close when done.
type App struct {
	cfg       *config.Config
	store     core.Store
	vault     core.ArchiveVault
	encryptor encryption.Encryptor
	service   *core.EventService
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "EventCreate").
func NewApp(cfg *config.Config, operation string) (*App, error) {
	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if cfg.Database.Type == "sqlite" {
		if s, ok := store.(*database.SQLiteStore); ok {
			if err := s.CheckMigrations(); err != nil {
				store.Close()
				return nil, fmt.Errorf("database schema out of date: %w", err)
			}
		}
	}

	// Archiving is optional: with no vaults configured, export commands
	// fail with a clear error and everything else works.
	var v core.ArchiveVault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger = logger.With("operation", operation)

	svc := core.NewEventService(store, v, enc, &slogAdapter{l: logger}, core.RealClock{}, core.UUIDGenerator{})

	return &App{
		cfg:       cfg,
		store:     store,
		vault:     v,
		encryptor: enc,
		service:   svc,
		logFile:   logFile,
	}, nil
}

// resolveUser maps a username from the command line to the stored user.
func (a *App) resolveUser(username string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("no user specified: pass --as <username>")
	}
	user, err := a.store.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", core.ErrNotFound, username)
	}
	return user, nil
}

// CreateUser registers a new user with a bcrypt-hashed password.
func (a *App) CreateUser(username, email, password string) (*model.UserPublic, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := a.store.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: username %s already taken", core.ErrConflict, username)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateUser(user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	pub := user.Public()
	return &pub, nil
}

// Authenticate verifies a username/password pair.
func (a *App) Authenticate(username, password string) (*model.UserPublic, error) {
	user, err := a.resolveUser(username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.HashedPassword, password) {
		return nil, fmt.Errorf("%w: invalid credentials", core.ErrForbidden)
	}
	pub := user.Public()
	return &pub, nil
}

// CreateEvent creates an event owned by the named user.
func (a *App) CreateEvent(asUser string, content model.EventContent) (*model.EventDetail, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.CreateEvent(content, user.ID)
}

// CreateEvents creates a batch of events, reporting per-item outcomes.
func (a *App) CreateEvents(asUser string, contents []model.EventContent) ([]core.BatchResult, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.CreateEvents(contents, user.ID), nil
}

// GetEvent returns the event detail visible to the named user.
func (a *App) GetEvent(eventID, asUser string) (*model.EventDetail, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.GetEvent(eventID, user.ID)
}

// UpdateEvent applies a partial content update as the named user.
func (a *App) UpdateEvent(eventID, asUser string, patch core.ContentPatch) (*model.EventDetail, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.UpdateEvent(eventID, patch, user.ID)
}

// DeleteEvent deletes an event as the named user.
func (a *App) DeleteEvent(eventID, asUser string) error {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return err
	}
	return a.service.DeleteEvent(eventID, user.ID)
}

// RollbackEvent restores a prior version's content as a new version.
func (a *App) RollbackEvent(eventID, targetVersionID, asUser string) (*model.EventDetail, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.RollbackEvent(eventID, targetVersionID, user.ID)
}

// GetVersion returns a single version of an event.
func (a *App) GetVersion(eventID, versionID, asUser string) (*model.EventVersion, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.GetVersion(eventID, versionID, user.ID)
}

// GetHistory returns an event's versions, newest first.
func (a *App) GetHistory(eventID, asUser string, limit, offset int) ([]*model.EventVersion, int, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, 0, err
	}
	return a.service.GetHistory(eventID, user.ID, limit, offset)
}

// GetChangelog returns an event's versions, oldest first.
func (a *App) GetChangelog(eventID, asUser string, limit, offset int) ([]*model.EventVersion, int, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, 0, err
	}
	return a.service.GetChangelog(eventID, user.ID, limit, offset)
}

// DiffVersions compares two versions of the same event field by field.
func (a *App) DiffVersions(eventID, versionID1, versionID2, asUser string) (map[string]core.FieldChange, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.DiffVersions(eventID, versionID1, versionID2, user.ID)
}

// ListEvents lists events or expanded occurrences for the named user.
func (a *App) ListEvents(asUser string, opts core.ListOptions) ([]model.Occurrence, int, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, 0, err
	}
	return a.service.ListEvents(user.ID, opts)
}

// GrantPermission grants a role on an event to the named grantee.
func (a *App) GrantPermission(eventID, grantee string, role model.Role, asUser string) (*model.EventPermission, error) {
	caller, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	target, err := a.resolveUser(grantee)
	if err != nil {
		return nil, err
	}
	return a.service.GrantPermission(eventID, target.ID, role, caller.ID)
}

// UpdatePermission changes an existing grant's role.
func (a *App) UpdatePermission(eventID, grantee string, role model.Role, asUser string) (*model.EventPermission, error) {
	caller, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	target, err := a.resolveUser(grantee)
	if err != nil {
		return nil, err
	}
	return a.service.UpdatePermission(eventID, target.ID, role, caller.ID)
}

// RevokePermission removes a grant from an event.
func (a *App) RevokePermission(eventID, grantee, asUser string) (bool, error) {
	caller, err := a.resolveUser(asUser)
	if err != nil {
		return false, err
	}
	target, err := a.resolveUser(grantee)
	if err != nil {
		return false, err
	}
	return a.service.RevokePermission(eventID, target.ID, caller.ID)
}

// ListPermissions lists all grants on an event.
func (a *App) ListPermissions(eventID, asUser string) ([]model.PermissionGrant, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}
	return a.service.ListPermissions(eventID, user.ID)
}

// ShareEvent applies a set of grant-or-update operations in one call.
// Grants name users by username; they are resolved here.
func (a *App) ShareEvent(eventID string, shares map[string]model.Role, asUser string) ([]model.PermissionGrant, error) {
	caller, err := a.resolveUser(asUser)
	if err != nil {
		return nil, err
	}

	grants := make([]core.ShareGrant, 0, len(shares))
	for username, role := range shares {
		target, err := a.resolveUser(username)
		if err != nil {
			return nil, err
		}
		grants = append(grants, core.ShareGrant{UserID: target.ID, Role: role})
	}
	return a.service.ShareEvent(eventID, grants, caller.ID)
}

// ExportEvent archives an event to the configured vault and returns the
// archive key.
func (a *App) ExportEvent(eventID, asUser string) (string, error) {
	user, err := a.resolveUser(asUser)
	if err != nil {
		return "", err
	}
	return a.service.ExportEvent(eventID, user.ID)
}

// ReadArchive fetches an archive by key and writes the decoded JSON to w.
// For encrypted archives the passphrase unlocks the private key first.
func (a *App) ReadArchive(key, passphrase string, w io.Writer) error {
	var dec core.DecryptionContext
	if passphrase != "" {
		var err error
		dec, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return a.service.ReadArchive(key, w, dec)
}

// SetupEncryption generates the archive key pair.
func (a *App) SetupEncryption(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// MigrateUp applies pending database migrations.
func (a *App) MigrateUp() error {
	if s, ok := a.store.(*database.SQLiteStore); ok {
		return s.MigrateUp()
	}
	return nil
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
