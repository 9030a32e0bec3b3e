package main

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/string-search/internal/client"
)

// clientFlags are shared by the commands that talk to a running server.
type clientFlags struct {
	host       string
	port       int
	useTLS     bool
	caFile     string
	insecure   bool
	serverName string
	timeout    time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "127.0.0.1", "Server host")
	cmd.Flags().IntVar(&f.port, "port", 8080, "Server port")
	cmd.Flags().BoolVar(&f.useTLS, "tls", false, "Connect over TLS")
	cmd.Flags().StringVar(&f.caFile, "ca", "", "PEM file with the CA or self-signed server certificate")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Skip server certificate verification")
	cmd.Flags().StringVar(&f.serverName, "server-name", "", "Expected server name (default: --host)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Second, "Per-query timeout")
}

func (f *clientFlags) client() (*client.Client, error) {
	addr := net.JoinHostPort(f.host, strconv.Itoa(f.port))

	var tlsConfig *tls.Config
	if f.useTLS {
		serverName := f.serverName
		if serverName == "" {
			serverName = f.host
		}

		var err error
		tlsConfig, err = client.TLSConfig(serverName, f.caFile, f.insecure)
		if err != nil {
			return nil, err
		}
	}

	return client.New(addr, tlsConfig, f.timeout), nil
}
