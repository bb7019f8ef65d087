package utils

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestPointerHelpers(t *testing.T) {
	f := F64Ptr(3.14)
	b := BoolPtr(true)
	require.NotNil(t, f)
	require.NotNil(t, b)
	require.InDelta(t, 3.14, *f, 1e-9)
	require.True(t, *b)
}

type tempErr struct{}

func (tempErr) Error() string   { return "temp" }
func (tempErr) Timeout() bool   { return true } // net.Error
func (tempErr) Temporary() bool { return true }

func withFastRetry(t *testing.T) {
	t.Helper()
	old := retryDelays
	retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = old })
}

func TestWithRetry_RetriesAndSucceeds(t *testing.T) {
	withFastRetry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var n int
	err := WithRetry(ctx, func() error {
		n++
		if n < 2 {
			return tempErr{}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestWithRetry_GivesUp(t *testing.T) {
	withFastRetry(t)
	var n int
	err := WithRetry(context.Background(), func() error {
		n++
		return tempErr{}
	})
	require.Error(t, err)
	require.Equal(t, 4, n)
}

func TestWithRetry_NotRetriable(t *testing.T) {
	var n int
	err := WithRetry(context.Background(), func() error {
		n++
		return errors.New("syntax error")
	})
	require.Error(t, err)
	require.Equal(t, 1, n)
}

func TestWithRetry_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var n int
	start := time.Now()
	err := WithRetry(ctx, func() error {
		n++
		return tempErr{}
	})
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, n)
	require.Less(t, time.Since(start), time.Second)
}

func TestIsRetriable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"pg-conn-failure", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, true},
		{"pg-starting-up", &pgconn.PgError{Code: pgerrcode.CannotConnectNow}, true},
		{"pg-unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, false},
		{"net-error", &net.DNSError{Err: "x"}, true},
		{"os-deadline", os.ErrDeadlineExceeded, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isRetriable(tc.err))
		})
	}
}

func TestIsDialError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"dial", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}, true},
		{"dns", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host"}}}, true},
		{"read", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}}, false},
		{"timeout", &url.Error{Op: "Post", URL: "http://x", Err: tempErr{}}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsDialError(tc.err))
		})
	}
}

func TestWithRetryIf_UsesPredicate(t *testing.T) {
	withFastRetry(t)
	var n int
	err := WithRetryIf(context.Background(), IsDialError, func() error {
		n++
		return tempErr{}
	})
	require.Error(t, err)
	require.Equal(t, 1, n)

	n = 0
	err = WithRetryIf(context.Background(), IsDialError, func() error {
		n++
		if n < 3 {
			return &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
