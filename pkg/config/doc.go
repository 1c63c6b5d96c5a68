// Package config holds the runtime configuration of a minigit server.
//
// A Config is built once from flags and environment variables by
// internal/flags.ReadConfig, validated, and then passed by value to the
// constructors that need it. Nothing in minigit reads configuration from
// global state after startup.
package config
