package inmemory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/and161185/health-dashboard/storage"
	"github.com/and161185/health-dashboard/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestMemStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return NewMemStorage(context.Background())
	})
}

func TestMemStorage_InsertCopiesPayload(t *testing.T) {
	ctx := context.Background()
	st := NewMemStorage(ctx)

	s := storagetest.NewSnapshot(t, "A", `{"timestamp":"t1","cpu_percent":1}`)
	require.NoError(t, st.Insert(ctx, s))
	s.Raw["cpu_percent"] = 99.0

	got, err := st.Recent(ctx, 1, "")
	require.NoError(t, err)
	require.InDelta(t, 1, *got[0].CPUPercent, 1e-9)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "nested", "snapshots.json")

	st := NewMemStorage(ctx)
	require.NoError(t, st.Insert(ctx, storagetest.NewSnapshot(t, "Alice", `{"client_name":"Alice","client_id":"x","timestamp":"2024-01-01T10:00:00","big":9007199254740993}`)))
	require.NoError(t, st.Insert(ctx, storagetest.NewSnapshot(t, "Bob", `{"timestamp":"2024-01-01T10:00:01","ram":{"percent":12.5}}`)))

	if err := st.SaveToFile(ctx, file); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	restored := NewMemStorage(ctx)
	if err := restored.LoadFromFile(ctx, file); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	got, err := restored.Recent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Bob", got[0].ClientID)
	require.InDelta(t, 12.5, *got[0].RAMPercent(), 1e-9)
	require.Equal(t, "Alice", got[1].ClientID)
	require.Equal(t, "x", got[1].Raw["client_id"])
	require.Equal(t, json.Number("9007199254740993"), got[1].Raw["big"])
}

func TestSaveToFile_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "snapshots.json")

	require.NoError(t, NewMemStorage(ctx).SaveToFile(ctx, file))
	require.NoFileExists(t, file)
}

func TestLoadFromFile_Missing(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, NewMemStorage(ctx).LoadFromFile(ctx, filepath.Join(t.TempDir(), "absent.json")))
}
