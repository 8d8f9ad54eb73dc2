// Package transport is the HTTP client side of the network.
//
// HTTP implements domain.Transport by POSTing {"message": ...} to
// http://<host>:<port>/message, and domain.Directory by talking to the
// registry's /registerNode and /getNodeRegistry routes. It also exposes the
// diagnostic GET routes of routers and users for the CLI and for tests.
//
// Every failure, including a non-2xx status, wraps domain.ErrTransport.
package transport
