// Package registry keeps the in-memory directory of onion routers.
//
// Registration is an upsert keyed by node id: re-registering replaces the
// public key in place and never creates a second entry. There is no
// authentication; the last write wins.
package registry
