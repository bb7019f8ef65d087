package client

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/and161185/health-dashboard/internal/config"
	"github.com/and161185/health-dashboard/internal/server/testutils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticCollector map[string]any

func (s staticCollector) Collect(context.Context) map[string]any { return s }

func TestSendSnapshot_OK(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, SubmitPath, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "gzip", r.Header.Get("Content-Encoding"))

		gr, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(gr).Decode(&payload))
		_ = gr.Close()
		require.Equal(t, "office-pc", payload["client_name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"Metrics received","client_id":"office-pc"}`))
	}))
	defer ts.Close()

	c := NewClient(nil, &config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 1}, nil)
	id, err := c.SendSnapshot(ctx, map[string]any{"client_name": "office-pc", "cpu_percent": 1.5})
	require.NoError(t, err)
	require.Equal(t, "office-pc", id)
}

func TestSendSnapshot_ErrorStatus(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"storage insert [client=x]: db down"}`))
	}))
	defer ts.Close()

	c := NewClient(nil, &config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 1}, nil)
	_, err := c.SendSnapshot(ctx, map[string]any{"client_id": "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status: 500")
	require.Contains(t, err.Error(), "db down")
}

func TestSendSnapshot_NonJSONResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy page</html>`))
	}))
	defer ts.Close()

	c := NewClient(nil, &config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 1}, nil)
	id, err := c.SendSnapshot(context.Background(), map[string]any{"client_id": "x"})
	require.ErrorContains(t, err, "decode response")
	require.Empty(t, id)
}

func TestSendSnapshot_TimeoutIsNotResent(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
	}))
	defer ts.Close()
	defer close(release)

	hc := &http.Client{Timeout: 50 * time.Millisecond}
	c := NewClientWithHTTP(nil, &config.ClientConfig{ServerAddr: ts.URL}, hc, nil)

	start := time.Now()
	_, err := c.SendSnapshot(context.Background(), map[string]any{"client_id": "x"})
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
	require.Less(t, time.Since(start), time.Second)
}

func TestSendSnapshot_AgainstServer(t *testing.T) {
	ctx := context.Background()
	srv := testutils.NewTestServer(ctx)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	c := NewClient(nil, &config.ClientConfig{ServerAddr: ts.URL, ClientTimeout: 1}, nil)
	c.realIP = "198.51.100.7"

	id, err := c.SendSnapshot(ctx, map[string]any{"cpu_percent": 3})
	require.NoError(t, err)
	require.Equal(t, "198.51.100.7", id)

	n, err := srv.Storage.CountSnapshots(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = c.SendSnapshot(ctx, map[string]any{})
	require.ErrorContains(t, err, "No data provided")
}

func TestRun_ReportsUntilCancelled(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		hits.Add(1)
		_, _ = w.Write([]byte(`{"status":"success","client_id":"a"}`))
	}))
	defer ts.Close()

	core, logs := observer.New(zap.InfoLevel)
	c := NewClient(staticCollector{"client_id": "a"},
		&config.ClientConfig{ServerAddr: ts.URL, ReportInterval: 1, ClientTimeout: 1}, zap.New(core).Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	require.EqualValues(t, 2, hits.Load())
	require.Equal(t, 2, logs.FilterMessageSnippet("snapshot sent").Len())
}

func TestRun_RejectsBadInterval(t *testing.T) {
	c := NewClient(staticCollector{}, &config.ClientConfig{ReportInterval: 0}, nil)
	require.Error(t, c.Run(context.Background()))
}
