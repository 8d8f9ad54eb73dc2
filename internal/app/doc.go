// Package app wires the network for the CLI.
//
// Config carries every tunable; Wire builds the concrete services and
// servers from it; LaunchNetwork starts a registry, routers and users in
// one process and returns a handle that shuts them all down.
package app
