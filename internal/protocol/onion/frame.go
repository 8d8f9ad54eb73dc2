package onion

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"onionnet/internal/crypto"
	"onionnet/internal/domain"
)

const (
	// HeaderWidth is the number of decimal digits of the destination
	// header.
	HeaderWidth = 10

	// MaxDestination is the largest destination HeaderWidth digits hold.
	MaxDestination = 9_999_999_999

	// DefaultMaxMessageLength caps plaintext messages, in characters.
	DefaultMaxMessageLength = 10_000
)

// ErrDestinationRange is returned when a destination does not fit the
// header.
var ErrDestinationRange = errors.New("destination out of header range")

// FormatDestination renders port as a zero padded HeaderWidth digit string.
func FormatDestination(port int) (string, error) {
	if port < 0 || int64(port) > MaxDestination {
		return "", fmt.Errorf("%w: %d", ErrDestinationRange, port)
	}
	return fmt.Sprintf("%0*d", HeaderWidth, port), nil
}

// ParseDestination parses a header produced by FormatDestination. Anything
// other than exactly HeaderWidth ASCII digits is a malformed layer.
func ParseDestination(header string) (int, error) {
	if len(header) != HeaderWidth {
		return 0, fmt.Errorf("%w: header is %d chars, want %d",
			domain.ErrMalformedLayer, len(header), HeaderWidth)
	}
	for i := 0; i < len(header); i++ {
		if header[i] < '0' || header[i] > '9' {
			return 0, fmt.Errorf("%w: non numeric header %q",
				domain.ErrMalformedLayer, header)
		}
	}
	port, err := strconv.ParseUint(header, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrMalformedLayer, err)
	}
	if port > math.MaxInt {
		return 0, fmt.Errorf("%w: destination %d overflows int",
			domain.ErrMalformedLayer, port)
	}
	return int(port), nil
}

// SplitLayer separates the wrapped key from the symmetric ciphertext.
func SplitLayer(layer string) (wrappedKey, cipherPayload string, err error) {
	if len(layer) < crypto.WrappedKeyLength {
		return "", "", fmt.Errorf("%w: layer is %d chars, want at least %d",
			domain.ErrMalformedLayer, len(layer), crypto.WrappedKeyLength)
	}
	return layer[:crypto.WrappedKeyLength], layer[crypto.WrappedKeyLength:], nil
}

// SplitHeader separates the destination header from the inner payload of a
// decrypted layer.
func SplitHeader(decrypted string) (int, string, error) {
	if len(decrypted) < HeaderWidth {
		return 0, "", fmt.Errorf("%w: decrypted layer is %d chars, want at least %d",
			domain.ErrMalformedLayer, len(decrypted), HeaderWidth)
	}
	port, err := ParseDestination(decrypted[:HeaderWidth])
	if err != nil {
		return 0, "", err
	}
	return port, decrypted[HeaderWidth:], nil
}

// Truncate returns the first max characters of message and whether
// anything was dropped. A max below zero disables the cap.
func Truncate(message string, max int) (string, bool) {
	if max < 0 || utf8.RuneCountInString(message) <= max {
		return message, false
	}
	n := 0
	for i := range message {
		if n == max {
			return message[:i], true
		}
		n++
	}
	return message, false
}
