// Package server implements the HTTP server and HTTP handlers for
// FileVault. It wires together the HTTP routes, dependencies
// (database, blob store), and provides lifecycle helpers used by
// tests and the production binary.
package server
