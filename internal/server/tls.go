package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/angeloszaimis/string-search/internal/apperr"
)

// NewTLSConfig loads the certificate and key and returns a server config that
// negotiates TLS 1.2 or 1.3 only. TLS 1.2 is restricted to ECDHE AEAD suites.
func NewTLSConfig(certFile, keyFile string, logger *slog.Logger) (*tls.Config, error) {
	if _, err := os.Stat(certFile); err != nil {
		return nil, apperr.TLSSetup(fmt.Sprintf("TLS certificate file not found: %s", certFile), err)
	}
	if _, err := os.Stat(keyFile); err != nil {
		return nil, apperr.TLSSetup(fmt.Sprintf("TLS private key file not found: %s", keyFile), err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, apperr.TLSSetup("failed to load TLS certificate and key", err)
	}

	if cert.Leaf == nil {
		leaf, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, apperr.TLSSetup("failed to parse TLS certificate", err)
		}
		cert.Leaf = leaf
	}

	logger.Info("TLS context initialized",
		slog.String("min_version", tls.VersionName(tls.VersionTLS12)),
		slog.String("max_version", tls.VersionName(tls.VersionTLS13)),
		slog.String("certificate", certFile),
		slog.String("private_key", keyFile),
		slog.String("subject", cert.Leaf.Subject.String()),
		slog.Time("not_after", cert.Leaf.NotAfter))

	if time.Now().After(cert.Leaf.NotAfter) {
		logger.Warn("TLS certificate has expired", slog.Time("not_after", cert.Leaf.NotAfter))
	}

	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
	}, nil
}
