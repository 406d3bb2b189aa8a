// Package main provides a performance benchmarking tool for the apprank CLI.
// It serves synthetic rankings of several sizes from an in-process endpoint and times
// 'apprank run' over consecutive days, treating the first day as cold (no history)
// and averaging the rest as warm, generating CSV output for performance analysis.
//
// Prerequisites:
// - apprank binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for the benchmark SQLite databases
package main

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// BenchmarkResult holds the result of a benchmark suite (cold run and average of warm runs).
type BenchmarkResult struct {
	Entities int
	Backend  string
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir   string
	Timeout   time.Duration
	Days      int
	PageSize  int
	Sizes     []int
	Backends  []string
	StartDate time.Time
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:   os.Args[1],
		Timeout:   5 * time.Minute,
		Days:      8,
		PageSize:  100,
		Sizes:     []int{100, 1000, 5000},
		Backends:  []string{"none", "sqlite"},
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the apprank binary and the work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("apprank"); err != nil {
		return fmt.Errorf("apprank binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create work dir %s: %w", config.WorkDir, err)
	}
	return nil
}

// syntheticRanking serves a ranking of size entities whose order rotates by day.
type syntheticRanking struct {
	mu       sync.Mutex
	size     int
	pageSize int
	day      int
}

func (s *syntheticRanking) setDay(day int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = day
}

func (s *syntheticRanking) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	size, pageSize, day := s.size, s.pageSize, s.day
	s.mu.Unlock()

	start, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	end := min(start+pageSize, size)

	var b strings.Builder
	b.WriteString(`{"result":{"miniApps":[`)
	for pos := start; pos < end; pos++ {
		if pos > start {
			b.WriteByte(',')
		}
		id := (pos + day*7) % size
		fmt.Fprintf(&b, `{"miniApp":{"id":"app-%d","name":"App %d","domain":"app%d.example","author":{"username":"dev%d","fid":%d}},"rank":%d}`,
			id, id, id, id, id, pos+1)
	}
	b.WriteString(`]`)
	if end < size {
		fmt.Fprintf(&b, `,"next":{"cursor":"%d"}`, end)
	}
	b.WriteString(`}}`)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(b.String()))
}

// runBenchmarks executes all benchmark suites across configured sizes and backends
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: sizes %v, backends %v, %d days, %v timeout\n",
		config.Sizes, config.Backends, config.Days, config.Timeout)

	for _, size := range config.Sizes {
		for _, backend := range config.Backends {
			results = append(results, runBenchmarkSuite(config, size, backend))
		}
	}
	return results
}

// runBenchmarkSuite ingests config.Days consecutive days into a fresh store
func runBenchmarkSuite(config BenchmarkConfig, size int, backend string) BenchmarkResult {
	fmt.Printf("Running %d entities on %s\n", size, backend)

	ranking := &syntheticRanking{size: size, pageSize: config.PageSize}
	srv := httptest.NewServer(ranking)
	defer srv.Close()

	dbPath := filepath.Join(config.WorkDir, fmt.Sprintf("bench_%d.db", size))
	_ = os.Remove(dbPath)
	defer func() { _ = os.Remove(dbPath) }()

	var times []float64
	for day := 0; day < config.Days; day++ {
		ranking.setDay(day)
		runDate := config.StartDate.AddDate(0, 0, day).Format("2006-01-02")
		elapsed, ok := runBenchmark(config, srv.URL, backend, dbPath, runDate, size)
		if !ok {
			fmt.Printf("  %s failed or timed out\n", runDate)
			continue
		}
		times = append(times, elapsed)
	}

	result := BenchmarkResult{Entities: size, Backend: backend, ColdTime: "TIMEOUT", WarmTime: "TIMEOUT"}
	if len(times) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", times[0])
	}
	if len(times) > 1 {
		var sum float64
		for _, t := range times[1:] {
			sum += t
		}
		result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(times)-1))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", result.ColdTime, result.WarmTime)
	return result
}

// runBenchmark executes one 'apprank run' and returns its wall time
func runBenchmark(config BenchmarkConfig, endpoint, backend, dbPath, runDate string, size int) (float64, bool) {
	args := []string{
		"run",
		"--date", runDate,
		"--endpoint", endpoint,
		"--page-limit", strconv.Itoa(config.PageSize),
		"--max-pages", strconv.Itoa(size/config.PageSize + 1),
		"--request-rate", "1000",
		"--store-backend", backend,
		"--store-db-connect", dbPath,
		"--notify", "log",
		"--log-level", "warn",
		"--output", "json",
	}

	start := time.Now()
	cmd := exec.Command("apprank", args...)

	done := make(chan bool)
	var output []byte
	var cmdErr error

	go func() {
		output, cmdErr = cmd.Output()
		done <- true
	}()

	select {
	case <-done:
		if cmdErr == nil && isSuccess(output, size) {
			return time.Since(start).Seconds(), true
		}
	case <-time.After(config.Timeout):
		_ = cmd.Process.Kill()
	}
	return 0, false
}

// isSuccess checks the printed summary covers every served entity
func isSuccess(output []byte, size int) bool {
	if !gjson.ValidBytes(output) {
		return false
	}
	return gjson.GetBytes(output, "entity_count").Int() == int64(size)
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/apprank_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"entities", "backend", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{strconv.Itoa(result.Entities), result.Backend, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %6d entities on %-7s: Cold: %s, Warm: %s\n", result.Entities, result.Backend, result.ColdTime, result.WarmTime)
	}
}
