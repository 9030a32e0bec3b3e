package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/string-search/internal/apperr"
	"github.com/angeloszaimis/string-search/internal/client"
)

var (
	benchFlags       clientFlags
	benchConcurrency int
	benchRequests    int
	benchFile        string
	benchOut         string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure throughput and latency of a running server",
	Long: `Send a fixed number of queries from concurrent workers and report
throughput, reply counts and latency percentiles.

Queries are taken round-robin from --file, one per line, or default to a
small built-in set.

Examples:
  stringsearch bench --concurrency 50 --requests 5000
  stringsearch bench --file queries.txt --out summary.json`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchFlags.register(benchCmd)
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 10, "Number of concurrent workers")
	benchCmd.Flags().IntVar(&benchRequests, "requests", 100, "Total number of requests to send")
	benchCmd.Flags().StringVar(&benchFile, "file", "", "File with one query per line")
	benchCmd.Flags().StringVar(&benchOut, "out", "", "Write JSON summary to this file (optional)")
	rootCmd.AddCommand(benchCmd)
}

var defaultBenchQueries = []string{"apple", "banana", "cherry", "kiwi"}

type benchSummary struct {
	Requests      int            `json:"requests"`
	Concurrency   int            `json:"concurrency"`
	Success       int            `json:"success"`
	Failure       int            `json:"failure"`
	Replies       map[string]int `json:"replies"`
	DurationMs    int64          `json:"duration_ms"`
	ThroughputRPS float64        `json:"throughput_rps"`
	MinMs         float64        `json:"min_ms"`
	AvgMs         float64        `json:"avg_ms"`
	MaxMs         float64        `json:"max_ms"`
	P50Ms         float64        `json:"p50_ms"`
	P90Ms         float64        `json:"p90_ms"`
	P95Ms         float64        `json:"p95_ms"`
	P99Ms         float64        `json:"p99_ms"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchConcurrency < 1 || benchRequests < 1 {
		return fmt.Errorf("concurrency and requests must be at least 1")
	}

	queries := defaultBenchQueries
	if benchFile != "" {
		var err error
		if queries, err = loadQueries(benchFile); err != nil {
			return err
		}
	}

	c, err := benchFlags.client()
	if err != nil {
		return err
	}

	summary, err := bench(cmd.Context(), c, queries, benchRequests, benchConcurrency)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)

	if benchOut != "" {
		if err := writeSummary(benchOut, summary); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nWrote JSON summary to %s\n", benchOut)
	}

	if summary.Failure > 0 {
		return fmt.Errorf("%d of %d requests failed", summary.Failure, summary.Requests)
	}
	return nil
}

// bench sends requests queries with at most concurrency in flight. Transport
// failures and SERVER ERROR replies count as failures and do not stop the run.
func bench(ctx context.Context, c *client.Client, queries []string, requests, concurrency int) (benchSummary, error) {
	if len(queries) == 0 {
		return benchSummary{}, fmt.Errorf("no queries to send")
	}

	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, requests)
		replies   = make(map[string]int)
		failure   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	start := time.Now()
	for i := 0; i < requests; i++ {
		query := queries[i%len(queries)]
		g.Go(func() error {
			reqStart := time.Now()
			reply, err := c.Query(gctx, query)
			dur := time.Since(reqStart)

			mu.Lock()
			defer mu.Unlock()

			latencies = append(latencies, dur)
			if err != nil || reply == apperr.ReplyServerError {
				failure++
				return nil
			}
			replies[reply]++
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return benchSummary{}, err
	}
	elapsed := time.Since(start)

	summary := benchSummary{
		Requests:      requests,
		Concurrency:   concurrency,
		Success:       requests - failure,
		Failure:       failure,
		Replies:       replies,
		DurationMs:    elapsed.Milliseconds(),
		ThroughputRPS: float64(requests) / elapsed.Seconds(),
	}

	slices.Sort(latencies)
	if len(latencies) > 0 {
		var sum time.Duration
		for _, d := range latencies {
			sum += d
		}
		summary.MinMs = millis(latencies[0])
		summary.AvgMs = millis(sum / time.Duration(len(latencies)))
		summary.MaxMs = millis(latencies[len(latencies)-1])
		summary.P50Ms = millis(percentile(latencies, 0.50))
		summary.P90Ms = millis(percentile(latencies, 0.90))
		summary.P95Ms = millis(percentile(latencies, 0.95))
		summary.P99Ms = millis(percentile(latencies, 0.99))
	}

	return summary, nil
}

// percentile picks the nearest-rank value from an ascending slice.
func percentile(sorted []time.Duration, pct float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * pct)
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open query file: %w", err)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			queries = append(queries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("query file %s is empty", path)
	}

	return queries, nil
}

func printSummary(w io.Writer, s benchSummary) {
	fmt.Fprintln(w, "--- Benchmark Summary ---")
	fmt.Fprintf(w, "Requests: %d  Concurrency: %d\n", s.Requests, s.Concurrency)
	fmt.Fprintf(w, "Success: %d  Failure: %d\n", s.Success, s.Failure)
	fmt.Fprintf(w, "Duration: %dms  Throughput: %.2f req/s\n", s.DurationMs, s.ThroughputRPS)

	fmt.Fprintln(w, "\nReplies:")
	keys := make([]string, 0, len(s.Replies))
	for k := range s.Replies {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s -> %d\n", k, s.Replies[k])
	}

	fmt.Fprintln(w, "\nLatencies (ms):")
	fmt.Fprintf(w, "  min=%.3f avg=%.3f max=%.3f p50=%.3f p90=%.3f p95=%.3f p99=%.3f\n",
		s.MinMs, s.AvgMs, s.MaxMs, s.P50Ms, s.P90Ms, s.P95Ms, s.P99Ms)

	fmt.Fprintf(w, "\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())
}

func writeSummary(path string, s benchSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
