// Package apperr defines the tagged error kinds produced while serving a lookup
// request and maps each kind to the single-line reply sent to the client.
package apperr
