// Package router implements an onion router: it peels one layer of every
// message it receives and forwards the remainder to the destination found in
// the layer's header.
//
// The router keeps three single-slot observation fields (last received
// layer, last decrypted payload, last destination) that are overwritten by
// every message. A layer that cannot be peeled is routed, with an empty
// payload, to the fallback port and still reported as accepted so the
// network stays live under malformed input.
package router
