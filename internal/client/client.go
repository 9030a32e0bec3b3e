package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	addr      string
	tlsConfig *tls.Config
	timeout   time.Duration
}

// New returns a client for addr. A nil tlsConfig means plain TCP. A zero
// timeout uses the default of ten seconds per query.
func New(addr string, tlsConfig *tls.Config, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		addr:      addr,
		tlsConfig: tlsConfig,
		timeout:   timeout,
	}
}

// Query sends line on a new connection and returns the server's reply. A
// newline is appended so an empty line still produces a non-empty write. A
// reset after the reply has arrived still returns the reply.
func (c *Client) Query(ctx context.Context, line string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", err
		}
	}

	if c.tlsConfig != nil {
		tlsConn := tls.Client(conn, c.tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return "", fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	if _, err := io.WriteString(conn, line+"\n"); err != nil {
		return "", fmt.Errorf("send query: %w", err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil && !(len(reply) > 0 && errors.Is(err, syscall.ECONNRESET)) {
		return "", fmt.Errorf("read reply: %w", err)
	}

	return strings.TrimSpace(string(reply)), nil
}

// TLSConfig builds a client config for TLS 1.2 to 1.3. With caFile empty and
// insecure set, the server certificate is not verified.
func TLSConfig(serverName, caFile string, insecure bool) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS13,
		ServerName:         serverName,
		InsecureSkipVerify: insecure,
	}

	if caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", caFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
