package handler

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angeloszaimis/string-search/internal/apperr"
	"github.com/angeloszaimis/string-search/internal/dataset"
	"github.com/angeloszaimis/string-search/internal/metrics"
	"github.com/angeloszaimis/string-search/internal/search"
)

// Search times above these limits are logged as slow.
const (
	slowCachedSearch   = 500 * time.Microsecond
	slowUncachedSearch = 40 * time.Millisecond
)

const (
	drainTimeout = 200 * time.Millisecond
	maxDrain     = 64 << 10
)

type ConnectionHandler struct {
	logger     *slog.Logger
	provider   dataset.Provider
	algorithm  search.Algorithm
	stats      *metrics.Stats
	maxPayload int
}

func NewConnectionHandler(logger *slog.Logger, provider dataset.Provider, algorithm search.Algorithm, stats *metrics.Stats, maxPayload int) *ConnectionHandler {
	return &ConnectionHandler{
		logger:     logger,
		provider:   provider,
		algorithm:  algorithm,
		stats:      stats,
		maxPayload: maxPayload,
	}
}

// Handle owns conn until it returns and always closes it. Failures are
// answered on the connection when possible and never propagate to the caller.
func (h *ConnectionHandler) Handle(ctx context.Context, conn net.Conn) {
	h.stats.Begin()
	defer h.stats.End()
	defer conn.Close()

	log := h.logger.With(
		slog.String("conn_id", uuid.NewString()),
		slog.String("remote", conn.RemoteAddr().String()))

	if tlsConn, ok := conn.(*tls.Conn); ok {
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			log.Warn("TLS handshake failed", slog.Any("err", err))
			return
		}
		log.Debug("TLS handshake complete",
			slog.String("version", tls.VersionName(tlsConn.ConnectionState().Version)))
	}

	reply, err := h.serve(conn, log)
	if err != nil {
		log.Error("Request failed",
			slog.String("kind", string(apperr.KindOf(err))),
			slog.Any("err", err))
		reply = apperr.Reply(err)
	}

	if _, err := io.WriteString(conn, reply); err != nil {
		log.Error("Failed to send response", slog.Any("err", apperr.Transport("write failed", err)))
		return
	}
	log.Debug("Response sent", slog.String("response", reply))

	linger(conn)
}

// linger half-closes conn after the reply and discards whatever the client
// sent past the single read, until it hangs up or drainTimeout passes.
// Closing a TCP socket with unread input makes the kernel send a reset that
// can destroy the reply before the client reads it.
func linger(conn net.Conn) {
	cw, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(drainTimeout))
	_, _ = io.CopyN(io.Discard, conn, maxDrain)
}

func (h *ConnectionHandler) serve(conn net.Conn, log *slog.Logger) (string, error) {
	query, err := receive(conn, h.maxPayload)
	if err != nil {
		return "", err
	}

	if query == "" {
		log.Warn("Empty payload received")
		return apperr.ReplyNotExist, nil
	}

	log.Info("Search query", slog.String("query", query))

	loadStart := time.Now()
	lines, err := h.provider.Lines()
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = apperr.FileAccess("failed to load dataset", err)
		}
		return "", err
	}
	if h.provider.Rereads() {
		log.Info("Dataset reread", slog.Duration("took", time.Since(loadStart)))
	}

	found, elapsed := search.Run(h.algorithm, query, lines)
	h.stats.Record(elapsed)

	if limit := h.slowSearchLimit(); elapsed > limit {
		log.Warn("Slow search",
			slog.String("algorithm", h.algorithm.Name()),
			slog.Duration("took", elapsed),
			slog.Duration("limit", limit))
	}

	reply := apperr.ReplyNotExist
	if found {
		reply = apperr.ReplyExists
	}

	log.Info("Search complete",
		slog.String("algorithm", h.algorithm.Name()),
		slog.Bool("found", found),
		slog.Duration("took", elapsed))

	return reply, nil
}

func (h *ConnectionHandler) slowSearchLimit() time.Duration {
	if h.provider.Rereads() {
		return slowUncachedSearch
	}
	return slowCachedSearch
}

// receive performs a single read of at most maxPayload bytes. There is no
// framing: one read is one request. Trailing NUL padding and surrounding
// whitespace are stripped from the result.
func receive(conn net.Conn, maxPayload int) (string, error) {
	buf := make([]byte, maxPayload)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil || err == io.EOF {
			return "", apperr.InvalidPayload("empty payload received", err)
		}
		return "", apperr.InvalidPayload("failed to receive payload", err)
	}

	data := buf[:n]
	if !utf8.Valid(data) {
		return "", apperr.InvalidPayload("payload is not valid UTF-8", nil)
	}

	return strings.TrimSpace(strings.TrimRight(string(data), "\x00")), nil
}
