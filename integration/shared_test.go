//go:build basic || database

package integration

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var (
	// sharedBinaryPath holds the path to a shared apprank binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getAppRankBinary returns the path to the apprank binary, building it once if needed.
func getAppRankBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "apprank-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "apprank")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if out, err := buildCmd.CombinedOutput(); err != nil {
			panic(fmt.Sprintf("failed to build apprank: %v\n%s", err, out))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// runAppRank runs the CLI with env on top of the current environment and returns stdout.
func runAppRank(t *testing.T, env map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(getAppRankBinary(), args...)
	cmd.Dir = t.TempDir() // keep any .env or .apprank.yaml of the checkout out of the run
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("apprank %v failed: %v\nstderr:\n%s", args, err, stderr.String())
	}
	return stdout.String(), err
}

// rankingDays maps a run date to the ranking served for it, as id -> rank.
var rankingDays = map[string]map[string]int{
	"2025-03-07": {"alpha": 10, "beta": 4, "gamma": 5},
	"2025-03-09": {"alpha": 7, "beta": 6, "gamma": 3},
	"2025-03-10": {"alpha": 4, "beta": 10, "gamma": 8},
}

// upstreamServer serves the ranking of the selected day split over two pages.
type upstreamServer struct {
	*httptest.Server
	mu  sync.Mutex
	day string
}

func newUpstreamServer(t *testing.T) *upstreamServer {
	t.Helper()
	u := &upstreamServer{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		ranks := rankingDays[u.day]
		u.mu.Unlock()

		ids := []string{"alpha", "beta", "gamma"}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("cursor") == "" {
			_, _ = fmt.Fprintf(w, `{"result":{"miniApps":[%s,%s],"next":{"cursor":"page2"}}}`,
				entryJSON(ids[0], ranks[ids[0]]), entryJSON(ids[1], ranks[ids[1]]))
			return
		}
		_, _ = fmt.Fprintf(w, `{"result":{"miniApps":[%s]}}`, entryJSON(ids[2], ranks[ids[2]]))
	}))
	t.Cleanup(u.Close)
	return u
}

func (u *upstreamServer) serve(day string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.day = day
}

func entryJSON(id string, rank int) string {
	return fmt.Sprintf(`{"miniApp":{"id":%q,"name":"App %s","domain":"%s.xyz","author":{"username":"u-%s"}},"rank":%d}`,
		id, id, id, id, rank)
}

// ingestScenario runs the pipeline for every day of rankingDays in date order.
func ingestScenario(t *testing.T, u *upstreamServer, env map[string]string) {
	t.Helper()
	for _, day := range []string{"2025-03-07", "2025-03-09", "2025-03-10"} {
		u.serve(day)
		_, err := runAppRank(t, env, "run", "--date", day, "--endpoint", u.URL, "--output", "json")
		require.NoError(t, err, day)
	}
}

// verifyScenario checks the derived tables after ingestScenario.
func verifyScenario(t *testing.T, env map[string]string) {
	t.Helper()

	out, err := runAppRank(t, env, "stats", "--date", "2025-03-10", "--output", "json")
	require.NoError(t, err)
	rows := gjson.Parse(out).Array()
	require.Len(t, rows, 3)

	byID := map[string]gjson.Result{}
	for _, r := range rows {
		byID[r.Get("entity_id").String()] = r
	}
	assert.Equal(t, int64(6), byID["alpha"].Get("rank_change_72h").Int())
	assert.Equal(t, int64(-6), byID["beta"].Get("rank_change_72h").Int())
	assert.Equal(t, int64(3), byID["alpha"].Get("rank_change_24h").Int())
	assert.Equal(t, int64(-5), byID["gamma"].Get("rank_change_24h").Int())
	assert.Equal(t, gjson.Null, byID["alpha"].Get("rank_change_7d").Type)
	assert.Equal(t, gjson.Null, byID["gamma"].Get("rank_change_30d").Type)
	assert.Equal(t, int64(3), byID["gamma"].Get("best_rank").Int())
	assert.Equal(t, int64(8), byID["gamma"].Get("worst_rank").Int())
	assert.InDelta(t, 16.0/3.0, byID["gamma"].Get("avg_rank").Float(), 1e-9)

	out, err = runAppRank(t, env, "summary", "--date", "2025-03-10", "--output", "json")
	require.NoError(t, err)
	summary := gjson.Parse(out)
	assert.Equal(t, int64(3), summary.Get("entity_count").Int())
	assert.Equal(t, []string{"App alpha"}, names(summary.Get("top_gainers")))
	assert.Equal(t, []string{"App alpha", "App gamma", "App beta"}, names(summary.Get("top_overall")))

	out, err = runAppRank(t, env, "snapshot", "show", "--date", "2025-03-10", "--raw")
	require.NoError(t, err)
	assert.Len(t, gjson.Parse(out).Array(), 3)

	out, err = runAppRank(t, env, "store", "status", "--output", "json")
	require.NoError(t, err)
	status := gjson.Parse(out)
	assert.Equal(t, int64(9), status.Get("table_sizes.apprank_rank_facts").Int())
	assert.Equal(t, "succeeded", status.Get("last_run.status").String())
}

func names(list gjson.Result) []string {
	out := []string{}
	for _, item := range list.Array() {
		out = append(out, item.Get("name").String())
	}
	return out
}
