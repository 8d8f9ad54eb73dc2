package onion

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/juju/loggo/v2"
	"golang.org/x/sync/errgroup"

	"onionnet/internal/crypto"
)

var log = loggo.GetLogger("onionnet.onion")

// ErrEmptyCircuit is returned when asked to build an onion without hops.
var ErrEmptyCircuit = errors.New("circuit has no hops")

// Hop is one router of a circuit as seen by the sender.
type Hop struct {
	Port      int    // where the previous hop (or the sender) delivers this hop's layer
	PublicKey string // exported RSA public key
}

// wrappedHop holds the per-hop key material prepared ahead of layering.
type wrappedHop struct {
	key        crypto.SymmetricKey
	wrappedKey string
}

// Builder builds onions, truncating plaintext to MaxMessageLength.
type Builder struct {
	MaxMessageLength int
}

// NewBuilder returns a Builder capping messages at maxMessageLength
// characters. Zero selects DefaultMaxMessageLength and a negative cap
// disables truncation.
func NewBuilder(maxMessageLength int) *Builder {
	if maxMessageLength == 0 {
		maxMessageLength = DefaultMaxMessageLength
	}
	return &Builder{MaxMessageLength: maxMessageLength}
}

// Build truncates plaintext to the builder's cap and layers it for hops.
// Truncation is deliberate and logged.
func (b *Builder) Build(plaintext string, hops []Hop, finalDestination int) (string, error) {
	msg, cut := Truncate(plaintext, b.MaxMessageLength)
	if cut {
		log.Warningf("message too long (%v), truncated to %d characters",
			humanize.Bytes(uint64(len(plaintext))), b.MaxMessageLength)
	}
	return BuildOnion(msg, hops, finalDestination)
}

// BuildOnion wraps plaintext in one layer per hop. hops is in traversal
// order: hops[0] is the entry router and the returned layer must be
// delivered to hops[0].Port.
func BuildOnion(plaintext string, hops []Hop, finalDestination int) (string, error) {
	if len(hops) == 0 {
		return "", ErrEmptyCircuit
	}
	if _, err := FormatDestination(finalDestination); err != nil {
		return "", err
	}

	// Key generation and wrapping do not depend on each other.
	prepared := make([]wrappedHop, len(hops))
	var g errgroup.Group
	for i := range hops {
		g.Go(func() error {
			wh, err := prepareHop(hops[i])
			if err != nil {
				return fmt.Errorf("hop %d: %w", i, err)
			}
			prepared[i] = wh
			return nil
		})
	}
	err := g.Wait()
	defer func() {
		for i := range prepared {
			prepared[i].key.Wipe()
		}
	}()
	if err != nil {
		return "", err
	}

	// Layering is strictly sequential, exit hop first.
	payload := plaintext
	for i := len(hops) - 1; i >= 0; i-- {
		next := finalDestination
		if i < len(hops)-1 {
			next = hops[i+1].Port
		}
		header, err := FormatDestination(next)
		if err != nil {
			return "", fmt.Errorf("hop %d: %w", i, err)
		}
		ct, err := crypto.SymmetricEncrypt(prepared[i].key, header+payload)
		if err != nil {
			return "", fmt.Errorf("hop %d: %w", i, err)
		}
		payload = prepared[i].wrappedKey + ct
		log.Debugf("layer %d -> %v: %v", i, next, humanize.Bytes(uint64(len(payload))))
	}
	return payload, nil
}

func prepareHop(h Hop) (wrappedHop, error) {
	pub, err := crypto.ImportPublicKey(h.PublicKey)
	if err != nil {
		return wrappedHop{}, err
	}
	key, err := crypto.GenerateSymmetricKey()
	if err != nil {
		return wrappedHop{}, err
	}
	wrapped, err := crypto.AsymmetricEncrypt(crypto.ExportSymmetricKey(key), pub)
	if err != nil {
		key.Wipe()
		return wrappedHop{}, err
	}
	return wrappedHop{key: key, wrappedKey: wrapped}, nil
}
