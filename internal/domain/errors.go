package domain

import "errors"

var (
	// ErrKey is returned when a key cannot be generated, imported or
	// exported.
	ErrKey = errors.New("key error")

	// ErrDecryption is returned for a wrong key, corrupted ciphertext or
	// truncated input.
	ErrDecryption = errors.New("decryption failed")

	// ErrMalformedLayer is returned for a layer shorter than its framing or
	// with a destination header that is not a decimal number.
	ErrMalformedLayer = errors.New("malformed layer")

	// ErrEmptyDirectory is returned when a circuit is requested from an
	// empty directory.
	ErrEmptyDirectory = errors.New("no nodes available in the directory")

	// ErrTransport is returned when delivery to the next hop fails.
	ErrTransport = errors.New("transport error")
)
