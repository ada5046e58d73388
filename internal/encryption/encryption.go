// Package encryption provides the archive encryption backends. Archives
// are encrypted with a public key at export time; reading them back
// requires unlocking the private key with a passphrase.
package encryption

import (
	"calshare/internal/core"
)

// Encryptor extends the service-facing core.Encryptor with key lifecycle
// operations used by the CLI.
type Encryptor interface {
	core.Encryptor

	// Setup performs one-time key generation. Generates a key pair,
	// stores the public key in plaintext, and encrypts the private key
	// with the provided passphrase.
	Setup(passphrase string) error

	// Unlock decrypts the private key using the passphrase and returns
	// a DecryptionContext for reading archives. Returns an error if the
	// passphrase is incorrect.
	Unlock(passphrase string) (core.DecryptionContext, error)
}
