package server_test

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/string-search/internal/apperr"
	"github.com/angeloszaimis/string-search/internal/client"
	"github.com/angeloszaimis/string-search/internal/handler"
	"github.com/angeloszaimis/string-search/internal/metrics"
	"github.com/angeloszaimis/string-search/internal/search"
	"github.com/angeloszaimis/string-search/internal/server"
)

type staticProvider []string

func (p staticProvider) Lines() ([]string, error) {
	return p, nil
}

func (p staticProvider) Rereads() bool {
	return false
}

var _ = Describe("Server", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	noop := server.HandlerFunc(func(ctx context.Context, conn net.Conn) {
		conn.Close()
	})

	Context("server creation", func() {
		It("creates server with a host name", func() {
			srv, err := server.New(server.Config{Host: "localhost", Port: 9999}, noop, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("creates server with an IP address", func() {
			srv, err := server.New(server.Config{Host: "127.0.0.1", Port: 9999}, noop, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("handles an empty host", func() {
			srv, err := server.New(server.Config{Port: 9999}, noop, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("rejects an invalid host", func() {
			srv, err := server.New(server.Config{Host: "bad host!", Port: 9999}, noop, log)
			Expect(err).To(HaveOccurred())
			Expect(srv).To(BeNil())
		})

		It("fails TLS setup when the certificate is missing", func() {
			srv, err := server.New(server.Config{
				Host:       "127.0.0.1",
				Port:       9999,
				TLSEnabled: true,
				CertFile:   "/nonexistent/server.crt",
				KeyFile:    "/nonexistent/server.key",
			}, noop, log)
			Expect(err).To(HaveOccurred())
			Expect(apperr.KindOf(err)).To(Equal(apperr.KindTLSSetup))
			Expect(srv).To(BeNil())
		})

		It("returns an error when the address is already bound", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			defer ln.Close()

			port := ln.Addr().(*net.TCPAddr).Port
			srv, err := server.New(server.Config{Host: "127.0.0.1", Port: port}, noop, log)
			Expect(err).NotTo(HaveOccurred())

			Expect(srv.Start(context.Background())).To(MatchError(ContainSubstring("listen on")))
		})
	})

	Context("server lifecycle", func() {
		var (
			srv    *server.Server
			stats  *metrics.Stats
			addr   string
			ctx    context.Context
			cancel context.CancelFunc
			served chan error
			cfg    server.Config
		)

		startServer := func() {
			h := handler.NewConnectionHandler(log, staticProvider{"apple", "banana", "cherry"}, search.NewJumpSearch(), stats, 1024)

			var err error
			srv, err = server.New(cfg, h, log)
			Expect(err).NotTo(HaveOccurred())

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			addr = ln.Addr().String()

			served = make(chan error, 1)
			go func() {
				served <- srv.Serve(ctx, ln)
			}()
			Eventually(srv.Addr).ShouldNot(BeNil())
		}

		BeforeEach(func() {
			stats = metrics.NewStats()
			ctx, cancel = context.WithCancel(context.Background())
			cfg = server.Config{Host: "127.0.0.1", Port: 0}
		})

		AfterEach(func() {
			cancel()
			if srv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
			}
		})

		Context("over plain TCP", func() {
			BeforeEach(func() {
				startServer()
			})

			It("answers queries", func() {
				c := client.New(addr, nil, time.Second)

				Expect(c.Query(ctx, "banana")).To(Equal("STRING EXISTS"))
				Expect(c.Query(ctx, "kiwi")).To(Equal("STRING NOT EXIST"))
				Expect(c.Query(ctx, "")).To(Equal("STRING NOT EXIST"))
			})

			It("serves concurrent connections independently", func() {
				const n = 30
				lines := []string{"apple", "banana", "cherry"}
				c := client.New(addr, nil, 5*time.Second)

				var wg sync.WaitGroup
				replies := make([]string, n)
				errs := make([]error, n)
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						replies[i], errs[i] = c.Query(ctx, lines[i%len(lines)])
					}(i)
				}
				wg.Wait()

				for i := 0; i < n; i++ {
					Expect(errs[i]).NotTo(HaveOccurred())
					Expect(replies[i]).To(Equal("STRING EXISTS"))
				}

				Eventually(func() int { return stats.Snapshot().Active }).Should(Equal(0))
				snap := stats.Snapshot()
				Expect(snap.TotalQueries).To(Equal(int64(n)))
				Expect(snap.MaxConcurrent).To(BeNumerically(">=", 1))
				Expect(snap.MaxConcurrent).To(BeNumerically("<=", n))
			})

			It("delivers the verdict for a query longer than the payload limit", func() {
				c := client.New(addr, nil, time.Second)

				padded := "banana" + strings.Repeat("\x00", 1025-len("banana")-1)
				Expect(len(padded) + 1).To(Equal(1025))
				Expect(c.Query(ctx, padded)).To(Equal("STRING EXISTS"))

				Expect(c.Query(ctx, strings.Repeat("x", 2000))).To(Equal("STRING NOT EXIST"))
			})

			It("closes oversize requests without a reset", func() {
				payload := append([]byte("banana"), bytes.Repeat([]byte{0}, 1025-len("banana"))...)

				for i := 0; i < 20; i++ {
					conn, err := net.Dial("tcp", addr)
					Expect(err).NotTo(HaveOccurred())

					_, err = conn.Write(payload)
					Expect(err).NotTo(HaveOccurred())
					Expect(conn.SetReadDeadline(time.Now().Add(time.Second))).To(Succeed())

					reply, err := io.ReadAll(conn)
					conn.Close()
					Expect(err).NotTo(HaveOccurred())
					Expect(string(reply)).To(Equal("STRING EXISTS"))
				}
			})

			It("keeps accepting while a client holds a connection open", func() {
				idle, err := net.Dial("tcp", addr)
				Expect(err).NotTo(HaveOccurred())
				defer idle.Close()

				c := client.New(addr, nil, time.Second)
				Expect(c.Query(ctx, "apple")).To(Equal("STRING EXISTS"))
			})

			It("stops on Shutdown", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer shutdownCancel()

				Expect(srv.Shutdown(shutdownCtx)).To(Succeed())
				Eventually(served).Should(Receive(BeNil()))

				_, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
				Expect(err).To(HaveOccurred())
			})

			It("stops when the context is cancelled", func() {
				cancel()
				Eventually(served).Should(Receive(BeNil()))
			})
		})

		Context("with a connection limit", func() {
			BeforeEach(func() {
				cfg.MaxConnections = 2
				startServer()
			})

			It("never runs more handlers than the limit", func() {
				const n = 20
				c := client.New(addr, nil, 5*time.Second)

				var wg sync.WaitGroup
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						Expect(c.Query(ctx, "cherry")).To(Equal("STRING EXISTS"))
					}()
				}
				wg.Wait()

				Eventually(func() int64 { return stats.Snapshot().TotalQueries }).Should(Equal(int64(n)))
				Expect(stats.Snapshot().MaxConcurrent).To(BeNumerically("<=", 2))
			})

			It("stops the accept loop on Shutdown while every slot is taken", func() {
				var idle []net.Conn
				for i := 0; i < 2; i++ {
					conn, err := net.Dial("tcp", addr)
					Expect(err).NotTo(HaveOccurred())
					idle = append(idle, conn)
				}
				defer func() {
					for _, conn := range idle {
						conn.Close()
					}
				}()
				Eventually(func() int { return stats.Snapshot().Active }).Should(Equal(2))

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				Expect(srv.Shutdown(shutdownCtx)).To(MatchError(context.DeadlineExceeded))
				Eventually(served).Should(Receive(BeNil()))
			})
		})

		Context("over TLS", func() {
			var (
				tempDir   string
				clientTLS *tls.Config
			)

			BeforeEach(func() {
				var err error
				tempDir, err = os.MkdirTemp("", "server-tls-*")
				Expect(err).NotTo(HaveOccurred())

				certPath, keyPath := writeSelfSignedCert(tempDir, time.Now().Add(24*time.Hour))
				cfg.TLSEnabled = true
				cfg.CertFile = certPath
				cfg.KeyFile = keyPath

				clientTLS, err = client.TLSConfig("127.0.0.1", certPath, false)
				Expect(err).NotTo(HaveOccurred())

				startServer()
			})

			AfterEach(func() {
				os.RemoveAll(tempDir)
			})

			It("answers queries over TLS", func() {
				c := client.New(addr, clientTLS, time.Second)

				Expect(c.Query(ctx, "banana")).To(Equal("STRING EXISTS"))
				Expect(c.Query(ctx, "kiwi")).To(Equal("STRING NOT EXIST"))
			})

			It("delivers the verdict for an oversize query over TLS", func() {
				c := client.New(addr, clientTLS, time.Second)

				padded := "cherry" + strings.Repeat("\x00", 1025-len("cherry")-1)
				Expect(c.Query(ctx, padded)).To(Equal("STRING EXISTS"))
			})

			It("negotiates TLS 1.2 or newer", func() {
				conn, err := tls.Dial("tcp", addr, clientTLS)
				Expect(err).NotTo(HaveOccurred())
				defer conn.Close()

				Expect(conn.ConnectionState().Version).To(BeNumerically(">=", tls.VersionTLS12))
			})

			It("rejects clients limited to TLS 1.1", func() {
				old := clientTLS.Clone()
				old.MinVersion = tls.VersionTLS10
				old.MaxVersion = tls.VersionTLS11

				c := client.New(addr, old, time.Second)
				_, err := c.Query(ctx, "banana")
				Expect(err).To(HaveOccurred())
			})

			It("isolates a failed handshake from other connections", func() {
				plain, err := net.Dial("tcp", addr)
				Expect(err).NotTo(HaveOccurred())
				_, err = fmt.Fprint(plain, "banana\n")
				Expect(err).NotTo(HaveOccurred())
				Expect(plain.SetReadDeadline(time.Now().Add(time.Second))).To(Succeed())
				reply, _ := io.ReadAll(plain)
				plain.Close()
				Expect(string(reply)).NotTo(ContainSubstring("STRING"))

				c := client.New(addr, clientTLS, time.Second)
				Expect(c.Query(ctx, "banana")).To(Equal("STRING EXISTS"))
				Expect(stats.Snapshot().TotalQueries).To(Equal(int64(1)))
			})
		})
	})
})
