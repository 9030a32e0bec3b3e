// Package handler implements the per-connection request cycle of the lookup
// server: receive one line, search the dataset, reply with a verdict and close.
package handler
