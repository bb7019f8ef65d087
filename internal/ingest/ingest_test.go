package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/and161185/health-dashboard/internal/errs"
	"github.com/and161185/health-dashboard/internal/recorder"
	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage/inmemory"
	"github.com/and161185/health-dashboard/storage/mocks"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 123456789, time.UTC)

func newGateway(t *testing.T) (*Gateway, *inmemory.MemStorage) {
	t.Helper()
	ctx := context.Background()
	st := inmemory.NewMemStorage(ctx)
	g := NewGateway(recorder.New(st, nil), nil)
	g.Now = func() time.Time { return fixedNow }
	return g, st
}

func TestResolveClientID(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		origin  string
		want    string
	}{
		{"name_wins", map[string]any{"client_name": "A", "client_id": "B"}, "1.2.3.4", "A"},
		{"id_when_no_name", map[string]any{"client_id": "B"}, "1.2.3.4", "B"},
		{"empty_name_skipped", map[string]any{"client_name": "", "client_id": "B"}, "1.2.3.4", "B"},
		{"origin_fallback", map[string]any{"cpu_percent": 5}, "1.2.3.4", "1.2.3.4"},
		{"null_name_skipped", map[string]any{"client_name": nil}, "10.0.0.1", "10.0.0.1"},
		{"numeric_id", map[string]any{"client_id": 42}, "1.2.3.4", "42"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveClientID(tc.payload, tc.origin))
		})
	}
}

func TestSubmit_StoresAndStamps(t *testing.T) {
	ctx := context.Background()
	g, st := newGateway(t)

	payload := map[string]any{
		"client_name": "A",
		"timestamp":   "2024-01-01T09:59:59",
		"received_at": "client value",
		"cpu_percent": 12.5,
	}

	id, err := g.Submit(ctx, payload, "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, "A", id)
	require.Equal(t, "client value", payload["received_at"], "caller payload must not change")

	got, err := st.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "A", got[0].ClientID)
	require.Equal(t, "2024-01-01T09:59:59", got[0].Timestamp)
	require.Equal(t, fixedNow.Format(time.RFC3339Nano), got[0].ReceivedAt)
	require.InDelta(t, 12.5, *got[0].CPUPercent, 1e-9)

	require.InDelta(t, 1, testutil.ToFloat64(g.submissions.WithLabelValues("accepted")), 0)
}

func TestSubmit_FillsMissingTimestamp(t *testing.T) {
	ctx := context.Background()
	g, st := newGateway(t)

	_, err := g.Submit(ctx, map[string]any{"cpu_percent": 1}, "1.2.3.4")
	require.NoError(t, err)

	got, _ := st.Recent(ctx, 1, "1.2.3.4")
	require.Len(t, got, 1)
	require.Equal(t, got[0].ReceivedAt, got[0].Timestamp)
}

func TestSubmit_EmptyPayload(t *testing.T) {
	g, st := newGateway(t)

	_, err := g.Submit(context.Background(), map[string]any{}, "1.2.3.4")
	require.ErrorIs(t, err, errs.ErrNoData)

	_, err = g.Submit(context.Background(), nil, "1.2.3.4")
	require.ErrorIs(t, err, errs.ErrNoData)

	n, _ := st.CountSnapshots(context.Background())
	require.Zero(t, n)
	require.InDelta(t, 2, testutil.ToFloat64(g.submissions.WithLabelValues("rejected")), 0)
}

func TestSubmit_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	st.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	g := NewGateway(recorder.New(st, nil), nil)

	_, err := g.Submit(context.Background(), map[string]any{"client_id": "A"}, "")
	var se *errs.StorageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "A", se.ClientID)
	require.InDelta(t, 1, testutil.ToFloat64(g.submissions.WithLabelValues("failed")), 0)
}

func TestSubmit_EachCallInserts(t *testing.T) {
	ctx := context.Background()
	g, st := newGateway(t)
	payload := map[string]any{"client_id": "A", "timestamp": "2024-01-01T10:00:00"}

	for i := 0; i < 3; i++ {
		_, err := g.Submit(ctx, payload, "")
		require.NoError(t, err)
	}

	n, _ := st.CountSnapshots(ctx)
	require.EqualValues(t, 3, n)
}

func TestDecodePayload(t *testing.T) {
	g, _ := newGateway(t)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"client_id":"A","cpu_percent":10}`, false},
		{"empty", ``, true},
		{"whitespace", "  \n", true},
		{"null", `null`, true},
		{"empty_object", `{}`, true},
		{"array", `[1,2]`, true},
		{"garbage", `{not json`, true},
		{"trailing_data", `{"client_id":"A"} trailing garbage`, true},
		{"second_object", `{"client_id":"A"}{"client_id":"B"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := g.DecodePayload(strings.NewReader(tc.body))
			if tc.wantErr {
				require.ErrorIs(t, err, errs.ErrNoData)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "A", payload[model.FieldClientID])
		})
	}
}

func TestDecodePayload_CountsRejected(t *testing.T) {
	g, _ := newGateway(t)

	_, _ = g.DecodePayload(strings.NewReader(``))
	_, _ = g.DecodePayload(strings.NewReader(`{}`))
	_, _ = g.DecodePayload(strings.NewReader(`{"a":1}`))

	require.InDelta(t, 2, testutil.ToFloat64(g.submissions.WithLabelValues("rejected")), 0)
}
