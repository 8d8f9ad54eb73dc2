// Package server exposes the registry, routers and users over HTTP.
//
// Each participant is a Server with a Run(ctx) loop owning an http.Server.
// Diagnostic GET routes answer {"result": ...} with JSON null until the
// slot is first written; POST routes take JSON bodies and answer plain text.
package server
