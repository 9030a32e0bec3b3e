// Package dataset loads the reference lines searched by the server.
//
// A Provider hands lines to request handlers. Snapshot loads the file once and
// shares the result read-only; Reread loads the file again on every call so
// edits are visible to the next query. Files ending in .zst or .gz are
// decompressed transparently.
package dataset
