// Package server runs the TCP accept loop of the lookup service, optionally
// wrapping accepted connections in TLS 1.2 to 1.3, and hands every connection to
// its own handler goroutine.
package server
