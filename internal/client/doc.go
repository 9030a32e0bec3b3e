// Package client sends single lookup queries to the server. Each query uses a
// fresh connection, optionally secured with TLS.
package client
