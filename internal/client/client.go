// Package client implements the reporting agent that posts snapshots to the
// dashboard server.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/and161185/health-dashboard/internal/config"
	"github.com/and161185/health-dashboard/internal/utils"
	"go.uber.org/zap"
)

// SubmitPath is the server endpoint snapshots are posted to.
const SubmitPath = "/api/metrics"

// Collector produces one snapshot payload.
type Collector interface {
	Collect(ctx context.Context) map[string]any
}

// Client samples the host and reports to the server on a fixed interval.
type Client struct {
	collector  Collector
	config     *config.ClientConfig
	httpClient *http.Client
	logger     *zap.SugaredLogger
	realIP     string
}

// NewClient creates a new client instance with the given collector and configuration.
func NewClient(c Collector, cfg *config.ClientConfig, logger *zap.SugaredLogger) *Client {
	hc := &http.Client{Timeout: time.Duration(cfg.ClientTimeout) * time.Second}
	return NewClientWithHTTP(c, cfg, hc, logger)
}

// DI: ready http.Client
func NewClientWithHTTP(c Collector, cfg *config.ClientConfig, hc *http.Client, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{collector: c, config: cfg, httpClient: hc, logger: logger, realIP: detectOutboundIP()}
}

func detectOutboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	if la, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return la.IP.String()
	}
	return ""
}

// Run reports once immediately and then every ReportInterval until ctx is
// cancelled. Failed reports are logged and skipped.
func (clnt *Client) Run(ctx context.Context) error {
	interval := time.Duration(clnt.config.ReportInterval) * time.Second
	if interval <= 0 {
		return fmt.Errorf("report interval must be positive, got %d", clnt.config.ReportInterval)
	}

	clnt.report(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			clnt.report(ctx)
		}
	}
}

func (clnt *Client) report(ctx context.Context) {
	payload := clnt.collector.Collect(ctx)
	if ctx.Err() != nil {
		return
	}
	clientID, err := clnt.SendSnapshot(ctx, payload)
	if err != nil {
		clnt.logger.Errorf("failed to send snapshot: %v", err)
		return
	}
	clnt.logger.Infof("snapshot sent [client=%s]", clientID)
}

type submitResponse struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
	Error    string `json:"error"`
}

// SendSnapshot posts payload and returns the client id the server filed it
// under.
func (clnt *Client) SendSnapshot(ctx context.Context, payload map[string]any) (string, error) {
	code, body, err := clnt.postGzipJSON(ctx, SubmitPath, payload)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	decodeErr := json.Unmarshal(body, &resp)
	if code != http.StatusOK {
		if resp.Error != "" {
			return "", fmt.Errorf("unexpected status: %d: %s", code, resp.Error)
		}
		return "", fmt.Errorf("unexpected status: %d", code)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	return resp.ClientID, nil
}

func (clnt *Client) postGzipJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal: %w", err)
	}

	var body bytes.Buffer
	zw := gzip.NewWriter(&body)
	if _, err = zw.Write(raw); err != nil {
		return 0, nil, fmt.Errorf("gzip write: %w", err)
	}
	if err = zw.Close(); err != nil {
		return 0, nil, fmt.Errorf("gzip close: %w", err)
	}
	compressed := body.Bytes()

	var (
		code     int
		respBody []byte
	)
	// Only dial failures are retried: once the request may have reached the
	// server a resend could store the snapshot twice.
	err = utils.WithRetryIf(ctx, utils.IsDialError, func() error {
		req, e := http.NewRequestWithContext(ctx, http.MethodPost, clnt.config.ServerAddr+path, bytes.NewReader(compressed))
		if e != nil {
			return e
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("Accept-Encoding", "gzip")
		if clnt.realIP != "" {
			req.Header.Set("X-Real-IP", clnt.realIP)
		}

		resp, e := clnt.httpClient.Do(req)
		if e != nil {
			return e
		}
		defer resp.Body.Close()

		respBody, e = readBody(resp)
		if e != nil {
			return e
		}
		code = resp.StatusCode
		return nil
	})
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	return code, respBody, nil
}

// readBody undoes gzip the server applied. The transport only does that
// itself when it set Accept-Encoding on its own.
func readBody(resp *http.Response) ([]byte, error) {
	if resp.Header.Get("Content-Encoding") != "gzip" {
		return io.ReadAll(resp.Body)
	}
	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
