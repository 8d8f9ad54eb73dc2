package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"onionnet/internal/domain"
	"onionnet/internal/util/memzero"
)

const (
	// RSABits is the modulus size of every router key pair.
	RSABits = 2048

	// MaxAsymmetricPlaintext is the largest input RSA-OAEP with SHA-256
	// accepts for a RSABits modulus.
	MaxAsymmetricPlaintext = RSABits/8 - 2*sha256.Size - 2

	// WrappedKeyLength is the base64 length of one RSA ciphertext. Every
	// layer starts with exactly this many characters.
	WrappedKeyLength = (RSABits/8 + 2) / 3 * 4
)

// ErrMessageTooLong is returned when the asymmetric plaintext exceeds
// MaxAsymmetricPlaintext.
var ErrMessageTooLong = errors.New("message too long for RSA key size")

// PublicKey is an RSA public key used to wrap symmetric keys.
type PublicKey struct {
	k *rsa.PublicKey
}

// PrivateKey is an RSA private key used to unwrap symmetric keys.
type PrivateKey struct {
	k *rsa.PrivateKey
}

// KeyPair holds a router's long-term key pair.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair returns a fresh RSABits key pair.
func GenerateKeyPair() (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, RSABits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: generate rsa key: %v", domain.ErrKey, err)
	}
	return KeyPair{
		Public:  PublicKey{k: &priv.PublicKey},
		Private: PrivateKey{k: priv},
	}, nil
}

// ExportPublicKey encodes pub as base64 SPKI (PKIX DER).
func ExportPublicKey(pub PublicKey) (string, error) {
	if pub.k == nil {
		return "", fmt.Errorf("%w: export nil public key", domain.ErrKey)
	}
	der, err := x509.MarshalPKIXPublicKey(pub.k)
	if err != nil {
		return "", fmt.Errorf("%w: marshal public key: %v", domain.ErrKey, err)
	}
	return B64(der), nil
}

// ImportPublicKey decodes a key produced by ExportPublicKey.
func ImportPublicKey(s string) (PublicKey, error) {
	der, err := UnB64(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: decode public key: %v", domain.ErrKey, err)
	}
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: parse public key: %v", domain.ErrKey, err)
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return PublicKey{}, fmt.Errorf("%w: public key is %T, want rsa", domain.ErrKey, k)
	}
	if pub.Size() != RSABits/8 {
		return PublicKey{}, fmt.Errorf("%w: public key is %d bits, want %d",
			domain.ErrKey, pub.Size()*8, RSABits)
	}
	return PublicKey{k: pub}, nil
}

// ExportPrivateKey encodes priv as base64 PKCS#8.
func ExportPrivateKey(priv PrivateKey) (string, error) {
	if priv.k == nil {
		return "", fmt.Errorf("%w: export nil private key", domain.ErrKey)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv.k)
	if err != nil {
		return "", fmt.Errorf("%w: marshal private key: %v", domain.ErrKey, err)
	}
	return B64(der), nil
}

// ImportPrivateKey decodes a key produced by ExportPrivateKey.
func ImportPrivateKey(s string) (PrivateKey, error) {
	der, err := UnB64(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: decode private key: %v", domain.ErrKey, err)
	}
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("%w: parse private key: %v", domain.ErrKey, err)
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return PrivateKey{}, fmt.Errorf("%w: private key is %T, want rsa", domain.ErrKey, k)
	}
	if priv.Size() != RSABits/8 {
		return PrivateKey{}, fmt.Errorf("%w: private key is %d bits, want %d",
			domain.ErrKey, priv.Size()*8, RSABits)
	}
	return PrivateKey{k: priv}, nil
}

// AsymmetricEncrypt encrypts the base64 encoded b64Data under pub and
// returns the base64 ciphertext, always WrappedKeyLength characters long.
func AsymmetricEncrypt(b64Data string, pub PublicKey) (string, error) {
	if pub.k == nil {
		return "", fmt.Errorf("%w: encrypt with nil public key", domain.ErrKey)
	}
	data, err := UnB64(b64Data)
	if err != nil {
		return "", fmt.Errorf("asymmetric encrypt: decode input: %w", err)
	}
	defer memzero.Zero(data)
	if len(data) > MaxAsymmetricPlaintext {
		return "", fmt.Errorf("asymmetric encrypt: %w (%d > %d bytes)",
			ErrMessageTooLong, len(data), MaxAsymmetricPlaintext)
	}
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub.k, data, nil)
	if err != nil {
		return "", fmt.Errorf("asymmetric encrypt: %w", err)
	}
	return B64(ct), nil
}

// AsymmetricDecrypt reverses AsymmetricEncrypt and returns the plaintext as
// base64.
func AsymmetricDecrypt(ciphertext string, priv PrivateKey) (string, error) {
	if priv.k == nil {
		return "", fmt.Errorf("%w: decrypt with nil private key", domain.ErrKey)
	}
	ct, err := UnB64(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode wrapped key: %v", domain.ErrDecryption, err)
	}
	if len(ct) != priv.k.Size() {
		return "", fmt.Errorf("%w: wrapped key is %d bytes, want %d",
			domain.ErrDecryption, len(ct), priv.k.Size())
	}
	data, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv.k, ct, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrDecryption, err)
	}
	defer memzero.Zero(data)
	return B64(data), nil
}
