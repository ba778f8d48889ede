// Package auth provides the authentication status types shared by the CLI
// and the daemon.
//
// These are plain data structures with JSON tags; they carry account labels,
// subjects and expiry but never token values.
package auth
