package cli

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, status int, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSeedSubmitsCount(t *testing.T) {
	var hits int64
	srv := countingServer(t, http.StatusOK, &hits)

	out, err := execute(t, "", "seed", "--url", srv.URL, "--cache-dir", t.TempDir(),
		"--count", "20", "--concurrency", "3", "--seed", "7", "--format", "json")
	require.NoError(t, err)

	assert.EqualValues(t, 20, atomic.LoadInt64(&hits))
	var res SeedResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.EqualValues(t, 20, res.Submitted)
	assert.Zero(t, res.Failed)
}

func TestSeedReportsFailures(t *testing.T) {
	var hits int64
	srv := countingServer(t, http.StatusBadRequest, &hits)

	out, err := execute(t, "", "seed", "--url", srv.URL, "--cache-dir", t.TempDir(), "--count", "5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "(5 failed)")
}

func TestSeedValidatesFlags(t *testing.T) {
	_, err := execute(t, "", "seed", "--cache-dir", t.TempDir(), "--concurrency", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
