// Package crypto encodes evidence content before it is stored.
package crypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Codec names accepted in configuration.
const (
	CodecMarker = "marker"
	CodecSealed = "sealed"
)

const (
	// MarkerPrefix is prepended to content before base64 encoding by the marker codec.
	MarkerPrefix = "ENCRYPTED:"
	sealedPrefix = "sealed:v1:"
)

var (
	ErrUnknownCodec = errors.New("unknown evidence codec")
	ErrNotEncoded   = errors.New("value was not produced by this codec")
)

// Codec encodes evidence content for storage and decodes it back.
type Codec interface {
	Name() string
	Encode(plaintext string) (string, error)
	Decode(encoded string) (string, error)
}

// NewCodec returns the codec named by name. An empty name selects the marker codec.
func NewCodec(name, passphrase string) (Codec, error) {
	switch name {
	case "", CodecMarker:
		return MarkerCodec{}, nil
	case CodecSealed:
		return NewSealedCodec(passphrase)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// MarkerCodec stores base64("ENCRYPTED:" + text). It is obfuscation only and
// offers no confidentiality.
type MarkerCodec struct{}

func (MarkerCodec) Name() string { return CodecMarker }

func (MarkerCodec) Encode(plaintext string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(MarkerPrefix + plaintext)), nil
}

func (MarkerCodec) Decode(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotEncoded, err)
	}
	text, ok := strings.CutPrefix(string(raw), MarkerPrefix)
	if !ok {
		return "", ErrNotEncoded
	}
	return text, nil
}

// SealedCodec encrypts with AES-256-GCM under a key derived per record from a
// passphrase. Output is "sealed:v1:" + base64(salt || nonce || ciphertext).
type SealedCodec struct {
	keys *KeyDeriver
}

// NewSealedCodec returns a sealed codec for passphrase.
func NewSealedCodec(passphrase string) (*SealedCodec, error) {
	keys, err := NewKeyDeriver(passphrase)
	if err != nil {
		return nil, err
	}
	return &SealedCodec{keys: keys}, nil
}

func (c *SealedCodec) Name() string { return CodecSealed }

func (c *SealedCodec) Encode(plaintext string) (string, error) {
	salt, err := c.keys.NewSalt()
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	sealed, err := Encrypt([]byte(plaintext), c.keys.DeriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt evidence: %w", err)
	}

	return sealedPrefix + base64.StdEncoding.EncodeToString(append(salt, sealed...)), nil
}

func (c *SealedCodec) Decode(encoded string) (string, error) {
	body, ok := strings.CutPrefix(encoded, sealedPrefix)
	if !ok {
		return "", ErrNotEncoded
	}
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotEncoded, err)
	}
	if len(raw) < saltSize {
		return "", ErrInvalidCiphertext
	}

	salt, sealed := raw[:saltSize], raw[saltSize:]
	plaintext, err := Decrypt(sealed, c.keys.DeriveKey(salt))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
