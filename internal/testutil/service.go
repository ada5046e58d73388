package testutil

import (
	"testing"

	"calshare/internal/core"
	"calshare/internal/vault"
)

// Fixture bundles a fully wired EventService with the stubs behind it so
// tests can control time and observe generated IDs.
type Fixture struct {
	Service *core.EventService
	Store   core.Store
	Vault   *vault.MemoryVault
	Clock   *StubClock
	IDs     *StubIDGenerator
}

// NewFixture creates an EventService over an in-memory store with a
// deterministic clock and ID generator and an in-memory vault. Archives
// are stored in plaintext; tests that exercise encryption wire their own
// encryptor.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()

	store := NewTestStore(t)
	v := vault.NewMemoryVault("test")
	clock := FixedClock()
	ids := NewStubIDGenerator()
	svc := core.NewEventService(store, v, nil, nil, clock, ids)

	return &Fixture{
		Service: svc,
		Store:   store,
		Vault:   v,
		Clock:   clock,
		IDs:     ids,
	}
}
