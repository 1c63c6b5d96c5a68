// Package cmd contains the minigit command-line interface.
//
// Running the root command starts the server: it prepares the storage
// directory, serves the health, metrics, repository and smart HTTP endpoints,
// and scans storage on the inventory schedule until interrupted.
//
// Usage examples:
//   - Serve repositories from ./data/repos on port 8080:
//     minigit
//   - Serve read-only with authentication:
//     minigit --allow-push=false --auth-user admin --auth-pass /run/secrets/minigit
//   - Create a repository without a running server:
//     minigit repo create demo
//
// The package wires the flags, repository, browse, access, api, metrics and
// notifications packages together and uses Cobra for CLI parsing and logrus
// for logging.
package cmd
