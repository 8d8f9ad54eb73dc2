package onion

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"onionnet/internal/crypto"
)

// State is a step of the peeling state machine.
type State int

const (
	StateReceived State = iota
	StateKeyUnwrapped
	StatePayloadDecrypted
	StateHeaderParsed
	StateForwarded
	StateDegraded
)

var stateNames = map[State]string{
	StateReceived:         "received",
	StateKeyUnwrapped:     "key_unwrapped",
	StatePayloadDecrypted: "payload_decrypted",
	StateHeaderParsed:     "header_parsed",
	StateForwarded:        "forwarded",
	StateDegraded:         "degraded",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of peeling one layer. It is either routable
// (State == StateHeaderParsed, later StateForwarded) or degraded, in which
// case Destination is the fallback port, Payload is empty, FailedAt is the
// last state reached and Err carries the reason.
type Result struct {
	State       State
	Destination int
	Payload     string

	FailedAt State
	Err      error
}

// Degraded reports whether peeling fell back.
func (r Result) Degraded() bool { return r.State == StateDegraded }

// Peeler removes one layer with a router's private key.
type Peeler struct {
	key      crypto.PrivateKey
	fallback int
}

// NewPeeler returns a Peeler that routes malformed layers to fallbackPort.
func NewPeeler(key crypto.PrivateKey, fallbackPort int) *Peeler {
	return &Peeler{key: key, fallback: fallbackPort}
}

func (p *Peeler) degrade(at State, err error) Result {
	log.Warningf("degraded at %v: %v", at, err)
	return Result{
		State:       StateDegraded,
		Destination: p.fallback,
		FailedAt:    at,
		Err:         err,
	}
}

// Peel runs the state machine on one received layer. It never fails; a
// layer that cannot be peeled yields a degraded Result.
func (p *Peeler) Peel(layer string) Result {
	log.Tracef("Peel: %v", humanize.Bytes(uint64(len(layer))))
	defer log.Tracef("Peel exit")

	// Received -> KeyUnwrapped
	wrappedKey, cipherPayload, err := SplitLayer(layer)
	if err != nil {
		return p.degrade(StateReceived, err)
	}
	keyText, err := crypto.AsymmetricDecrypt(wrappedKey, p.key)
	if err != nil {
		return p.degrade(StateReceived, err)
	}

	// KeyUnwrapped -> PayloadDecrypted
	key, err := crypto.ImportSymmetricKey(keyText)
	if err != nil {
		return p.degrade(StateKeyUnwrapped, err)
	}
	defer key.Wipe()
	decrypted, err := crypto.SymmetricDecrypt(key, cipherPayload)
	if err != nil {
		return p.degrade(StateKeyUnwrapped, err)
	}

	// PayloadDecrypted -> HeaderParsed
	dest, payload, err := SplitHeader(decrypted)
	if err != nil {
		return p.degrade(StatePayloadDecrypted, err)
	}

	return Result{
		State:       StateHeaderParsed,
		Destination: dest,
		Payload:     payload,
	}
}
