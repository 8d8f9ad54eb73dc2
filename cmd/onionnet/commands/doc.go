// Package commands defines the onionnet CLI.
//
// Commands
//
//   - registry   Run the node directory
//   - router     Run one onion router
//   - user       Run one user
//   - launch     Run a registry, routers and users in one process
//   - send       Ask a running user to send a message
//
// # Implementation
//
// Persistent flags on the root command fill an app.Config before any
// subcommand runs; long-running commands stop on SIGINT or SIGTERM.
package commands
