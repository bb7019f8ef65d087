// Package ingest accepts client submissions, resolves who sent them and hands
// them to the recorder.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/and161185/health-dashboard/internal/errs"
	"github.com/and161185/health-dashboard/model"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Inserter is the write side of the recorder.
type Inserter interface {
	Insert(ctx context.Context, s *model.Snapshot) error
}

type Gateway struct {
	store  Inserter
	logger *zap.SugaredLogger

	// Now stamps received_at. Replaced in tests.
	Now func() time.Time

	submissions *prometheus.CounterVec
}

func NewGateway(store Inserter, logger *zap.SugaredLogger) *Gateway {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gateway{
		store:  store,
		logger: logger,
		Now:    time.Now,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "health_dashboard_submissions_total",
			Help: "Snapshot submissions by outcome.",
		}, []string{"result"}),
	}
}

// Collector exposes the gateway counters for registration.
func (g *Gateway) Collector() prometheus.Collector {
	return g.submissions
}

// DecodePayload reads a JSON object from r. Anything that is not a non-empty
// object is reported as errs.ErrNoData.
func (g *Gateway) DecodePayload(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		g.submissions.WithLabelValues("rejected").Inc()
		return nil, errs.ErrNoData
	}

	payload, err := model.DecodePayload(data)
	if err != nil {
		g.submissions.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %v", errs.ErrNoData, err)
	}
	if len(payload) == 0 {
		g.submissions.WithLabelValues("rejected").Inc()
		return nil, errs.ErrNoData
	}
	return payload, nil
}

// Submit stamps and stores one submission and returns the client id it was
// filed under. origin is the sender's network address without port.
func (g *Gateway) Submit(ctx context.Context, payload map[string]any, origin string) (string, error) {
	if len(payload) == 0 {
		g.submissions.WithLabelValues("rejected").Inc()
		return "", errs.ErrNoData
	}

	raw := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		raw[k] = v
	}

	receivedAt := g.Now().Format(time.RFC3339Nano)
	raw[model.FieldReceivedAt] = receivedAt
	if ts := textOf(raw[model.FieldTimestamp]); ts == "" {
		raw[model.FieldTimestamp] = receivedAt
	}

	s := model.SnapshotFromPayload(raw)
	s.ClientID = ResolveClientID(payload, origin)

	if err := g.store.Insert(ctx, &s); err != nil {
		g.submissions.WithLabelValues("failed").Inc()
		return "", err
	}

	g.submissions.WithLabelValues("accepted").Inc()
	g.logger.Infof("metrics received [client=%s]", s.ClientID)
	return s.ClientID, nil
}

// ResolveClientID picks client_name, then client_id, then origin, skipping
// empty values.
func ResolveClientID(payload map[string]any, origin string) string {
	if v := textOf(payload[model.FieldClientName]); v != "" {
		return v
	}
	if v := textOf(payload[model.FieldClientID]); v != "" {
		return v
	}
	return origin
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return ""
		}
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
