// Package onion implements layered ("onion") encryption for a fixed-length
// circuit of routers.
//
// # Layer format
//
// A layer is text:
//
//	WRAPPED_KEY (crypto.WrappedKeyLength chars) || CIPHERTEXT
//
// WRAPPED_KEY is the hop's fresh symmetric key, RSA-OAEP encrypted under the
// hop's public key. CIPHERTEXT is the symmetric encryption of
//
//	DESTINATION (HeaderWidth decimal digits, zero padded) || INNER
//
// where INNER is the next layer, or the plaintext for the innermost hop.
//
// # Flows
//
// Sender (BuildOnion):
//  1. Generate and wrap one symmetric key per hop (hops are independent and
//     are processed concurrently).
//  2. Walk the circuit from the exit hop back to the entry hop. The exit
//     hop's destination is the final recipient; every other hop's
//     destination is the port of the hop after it.
//  3. Return the outermost layer, to be delivered to the entry hop.
//
// Router (Peeler.Peel):
//
//	Received -> KeyUnwrapped -> PayloadDecrypted -> HeaderParsed
//
// Any failure short-circuits to Degraded, which routes an empty payload to
// the configured fallback port. A router cannot tell whether INNER is
// another layer or plaintext; it always forwards one level further.
package onion
