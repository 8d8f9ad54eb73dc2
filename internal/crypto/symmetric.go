package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"onionnet/internal/domain"
	"onionnet/internal/util/memzero"
)

const (
	// SymmetricKeyBytes is the size of a layer key (256 bits).
	SymmetricKeyBytes = chacha20poly1305.KeySize

	// NonceBytes is the size of the random nonce prepended to every
	// symmetric ciphertext.
	NonceBytes = chacha20poly1305.NonceSize
)

// SymmetricKey is an ephemeral per-hop layer key.
type SymmetricKey struct {
	b [SymmetricKeyBytes]byte
}

// Wipe zeroes the key material.
func (k *SymmetricKey) Wipe() { memzero.Zero(k.b[:]) }

// GenerateSymmetricKey returns a fresh random layer key.
func GenerateSymmetricKey() (SymmetricKey, error) {
	var k SymmetricKey
	if _, err := rand.Read(k.b[:]); err != nil {
		return SymmetricKey{}, fmt.Errorf("%w: generate symmetric key: %v", domain.ErrKey, err)
	}
	return k, nil
}

// ExportSymmetricKey returns the raw key bytes as base64.
func ExportSymmetricKey(k SymmetricKey) string { return B64(k.b[:]) }

// ImportSymmetricKey decodes a key produced by ExportSymmetricKey. Anything
// that does not decode to exactly SymmetricKeyBytes is rejected.
func ImportSymmetricKey(s string) (SymmetricKey, error) {
	raw, err := UnB64(s)
	if err != nil {
		return SymmetricKey{}, fmt.Errorf("%w: decode symmetric key: %v", domain.ErrKey, err)
	}
	defer memzero.Zero(raw)
	if len(raw) != SymmetricKeyBytes {
		return SymmetricKey{}, fmt.Errorf("%w: symmetric key is %d bytes, want %d",
			domain.ErrKey, len(raw), SymmetricKeyBytes)
	}
	var k SymmetricKey
	copy(k.b[:], raw)
	return k, nil
}

// SymmetricEncrypt seals plaintext under k with a fresh random nonce and
// returns base64(nonce || ciphertext || tag).
func SymmetricEncrypt(k SymmetricKey, plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(k.b[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrKey, err)
	}
	nonce := make([]byte, NonceBytes, NonceBytes+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("symmetric encrypt: nonce: %w", err)
	}
	return B64(aead.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

// SymmetricDecrypt opens a ciphertext produced by SymmetricEncrypt.
func SymmetricDecrypt(k SymmetricKey, ciphertext string) (string, error) {
	aead, err := chacha20poly1305.New(k.b[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrKey, err)
	}
	raw, err := UnB64(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", domain.ErrDecryption, err)
	}
	if len(raw) < NonceBytes+aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short (%d bytes)",
			domain.ErrDecryption, len(raw))
	}
	pt, err := aead.Open(nil, raw[:NonceBytes], raw[NonceBytes:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	return string(pt), nil
}
