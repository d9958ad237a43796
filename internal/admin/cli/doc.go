// Package cli implements evote-admin, the operator command line used to load
// the roster and bootstrap administrator accounts directly against the
// database.
//
// Usage:
//
//	evote-admin [flags] import <roster.json>...
//	evote-admin [flags] promote <colegiado>
//	evote-admin [flags] set-password <colegiado>
//
// Flags are the server's (-t driver, -d DSN, -c config file, ...).
package cli
