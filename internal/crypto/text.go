package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Every key and ciphertext crosses the wire as standard base64 text.
var b64 = base64.StdEncoding.Strict()

// B64 encodes b as standard padded base64.
func B64(b []byte) string { return b64.EncodeToString(b) }

// UnB64 decodes standard padded base64, rejecting non-zero padding bits.
func UnB64(s string) ([]byte, error) { return b64.DecodeString(s) }

// Fingerprint identifies an exported key in logs: the first 10 bytes of the
// SHA-256 of its DER encoding, in hex. Text that is not base64 is hashed
// as is.
func Fingerprint(exported string) string {
	der, err := UnB64(exported)
	if err != nil {
		der = []byte(exported)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:10])
}
