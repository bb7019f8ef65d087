package inmemory

import (
	"context"
	"fmt"
	"testing"

	"github.com/and161185/health-dashboard/storage/storagetest"
)

func BenchmarkInsert(b *testing.B) {
	ctx := context.Background()
	st := NewMemStorage(ctx)
	s := storagetest.NewSnapshot(b, "bench", `{"timestamp":"2024-01-01T10:00:00","cpu_percent":42}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = st.Insert(ctx, s)
	}
}

func BenchmarkRecent(b *testing.B) {
	ctx := context.Background()
	st := NewMemStorage(ctx)
	for i := 0; i < 1000; i++ {
		payload := fmt.Sprintf(`{"timestamp":"2024-01-01T10:%02d:%02d","cpu_percent":%d}`, i/60%60, i%60, i%100)
		_ = st.Insert(ctx, storagetest.NewSnapshot(b, fmt.Sprintf("client-%d", i%10), payload))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = st.Recent(ctx, 50, "")
	}
}
