// Package server holds the configuration of the optional HTTP status server.
//
// The pollers run without it. When enabled, the start command serves the
// inventory and audit status endpoints on Port, protected by ApiKey.
package server
