package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Olzhassss/flappy-bird/pkg/leaderboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, leaderboard.APIPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"_id":"65f1c0ffee0000000000aaaa","name":"Ann","score":42},
			{"_id":"65f1c0ffee0000000000bbbb","name":"Bob","score":null}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	entries, err := c.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Ann", entries[0].Name)
	score, ok := entries[0].Score.Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), score)
	assert.Equal(t, "65f1c0ffee0000000000aaaa", entries[0].ID.Hex())

	assert.Equal(t, "Bob", entries[1].Name)
	assert.True(t, entries[1].Score.IsNaN())
}

func TestLeaderboardStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Leaderboard(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestSubmit(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte("Success"))
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Submit(context.Background(), "Ann", 42)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got["name"])
	assert.Equal(t, float64(42), got["score"])
}

func TestSubmitBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad request!", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Submit(context.Background(), "Ann", 1)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, 200*time.Millisecond).Leaderboard(context.Background())
	assert.Error(t, err)
}
