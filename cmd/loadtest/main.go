// Command loadtest drives concurrent scan requests against matcherd and
// prints throughput, latency percentiles, and status-code counts.
//
//	loadtest -url http://localhost:8080 -file logs/app.log -terms ERROR,WARN -concurrency 16
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	FilePath    string
	Terms       []string
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	totalMatches  atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, matches int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
		s.totalMatches.Add(int64(matches))
	} else {
		s.errorCount.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the scan service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	file := flag.String("file", "", "file to scan, relative to the service scan root (default: inline text)")
	terms := flag.String("terms", "error,timeout,retry", "comma-separated search terms")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimSuffix(*baseURL, "/"),
		Concurrency: max(*concurrency, 1),
		Duration:    *duration,
		FilePath:    *file,
		Terms:       strings.Split(*terms, ","),
	}

	fmt.Println("=== Scan Service Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Terms:       %q\n", cfg.Terms)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	stats := runLoadTest(ctx, cfg, &http.Client{Timeout: time.Minute})
	if !printReport(os.Stdout, stats, cfg.Duration) {
		os.Exit(1)
	}
}

// sampleText is scanned when no file is given.
var sampleText = strings.Repeat(
	"2024-05-01T12:00:00Z INFO request served in 12ms\n"+
		"2024-05-01T12:00:01Z WARN retry 1 after timeout talking to upstream\n"+
		"2024-05-01T12:00:02Z ERROR upstream timeout, giving up\n", 200)

func requestBody(cfg Config) ([]byte, error) {
	body := map[string]any{"terms": cfg.Terms}
	if cfg.FilePath != "" {
		body["file_path"] = cfg.FilePath
	} else {
		body["text"] = sampleText
	}
	return json.Marshal(body)
}

func runLoadTest(ctx context.Context, cfg Config, client *http.Client) *Stats {
	stats := NewStats()
	body, err := requestBody(cfg)
	if err != nil {
		panic(fmt.Sprintf("encoding request: %v", err))
	}
	scanURL := cfg.BaseURL + "/api/v1/scans"

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, scanURL, bytes.NewReader(body))
				if err != nil {
					stats.RecordRequest(0, 0, 0, err)
					return
				}
				req.Header.Set("Content-Type", "application/json")

				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(time.Since(start), 0, 0, err)
					continue
				}
				var doc struct {
					Stats struct {
						Matches int `json:"matches"`
					} `json:"stats"`
				}
				json.NewDecoder(resp.Body).Decode(&doc)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(time.Since(start), resp.StatusCode, doc.Stats.Matches, nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

// printReport writes the summary and reports whether any request completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	failed := stats.errorCount.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", success)
	fmt.Fprintf(w, "Errors:          %d\n", failed)
	fmt.Fprintf(w, "Matches Found:   %d\n", stats.totalMatches.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(codes))
	for _, code := range codes {
		counts[code] = stats.statusCodes[code]
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P90:    %s\n", percentile(latencies, 90))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, counts[code])
	}

	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
