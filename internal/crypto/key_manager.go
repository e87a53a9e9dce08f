package crypto

import (
	"errors"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for passphrase-derived keys.
const (
	keySize      = 32
	saltSize     = 16
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrEmptyPassphrase = errors.New("passphrase must not be empty")

// KeyDeriver turns a user-held passphrase into per-record AES-256 keys.
type KeyDeriver struct {
	passphrase []byte
}

// NewKeyDeriver returns a deriver for passphrase.
func NewKeyDeriver(passphrase string) (*KeyDeriver, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &KeyDeriver{passphrase: []byte(passphrase)}, nil
}

// NewSalt returns a fresh random salt.
func (kd *KeyDeriver) NewSalt() ([]byte, error) {
	return randomBytes(saltSize)
}

// DeriveKey derives the key for salt.
func (kd *KeyDeriver) DeriveKey(salt []byte) []byte {
	return argon2.IDKey(kd.passphrase, salt, argonTime, argonMemory, argonThreads, keySize)
}
