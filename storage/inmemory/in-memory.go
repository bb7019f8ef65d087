// Package inmemory implements storage.Storage in process memory with an
// optional JSON dump on disk.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage"
)

type record struct {
	clientID   string
	clientName string
	timestamp  string
	raw        map[string]any
}

type MemStorage struct {
	records []record
	mu      sync.RWMutex
}

func NewMemStorage(ctx context.Context) *MemStorage {
	return &MemStorage{}
}

func (store *MemStorage) Insert(ctx context.Context, s *model.Snapshot) error {
	if err := storage.Validate(s); err != nil {
		return err
	}

	raw := make(map[string]any, len(s.Raw))
	for k, v := range s.Raw {
		raw[k] = v
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	store.records = append(store.records, record{
		clientID:   s.ClientID,
		clientName: s.ClientName,
		timestamp:  s.Timestamp,
		raw:        raw,
	})
	return nil
}

func (store *MemStorage) Recent(ctx context.Context, limit int, clientID string) ([]model.Snapshot, error) {
	store.mu.RLock()
	matched := make([]record, 0, len(store.records))
	for _, r := range store.records {
		if clientID == "" || r.clientID == clientID {
			matched = append(matched, r)
		}
	}
	store.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].timestamp > matched[j].timestamp
	})
	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]model.Snapshot, 0, len(matched))
	for _, r := range matched {
		s := model.SnapshotFromPayload(r.raw)
		s.ClientID = r.clientID
		result = append(result, s)
	}
	return result, nil
}

func (store *MemStorage) CountClients(ctx context.Context) (int64, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range store.records {
		seen[r.clientID] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (store *MemStorage) CountSnapshots(ctx context.Context) (int64, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	return int64(len(store.records)), nil
}

func (store *MemStorage) Clients(ctx context.Context) ([]model.ClientRollup, error) {
	type key struct{ id, name string }

	store.mu.RLock()
	groups := make(map[key]*model.ClientRollup)
	for _, r := range store.records {
		k := key{r.clientID, r.clientName}
		g, ok := groups[k]
		if !ok {
			g = &model.ClientRollup{ClientID: r.clientID, ClientName: r.clientName, LastSeen: r.timestamp}
			groups[k] = g
		}
		g.MetricCount++
		if r.timestamp > g.LastSeen {
			g.LastSeen = r.timestamp
		}
	}
	store.mu.RUnlock()

	result := make([]model.ClientRollup, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ClientID != result[j].ClientID {
			return result[i].ClientID < result[j].ClientID
		}
		return result[i].ClientName < result[j].ClientName
	})
	return result, nil
}

type fileRecord struct {
	ClientID string          `json:"client_id"`
	Raw      json.RawMessage `json:"raw"`
}

// SaveToFile writes every stored payload to filePath, oldest first.
func (store *MemStorage) SaveToFile(ctx context.Context, filePath string) error {
	store.mu.RLock()
	dump := make([]fileRecord, 0, len(store.records))
	for _, r := range store.records {
		raw, err := json.Marshal(r.raw)
		if err != nil {
			store.mu.RUnlock()
			return fmt.Errorf("failed to marshal snapshot of %s: %w", r.clientID, err)
		}
		dump = append(dump, fileRecord{ClientID: r.clientID, Raw: raw})
	}
	store.mu.RUnlock()

	if len(dump) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create dir: %w", err)
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadFromFile appends the payloads dumped by SaveToFile. A missing file is
// not an error.
func (store *MemStorage) LoadFromFile(ctx context.Context, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	var dump []fileRecord
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("failed to unmarshal snapshots: %w", err)
	}

	for _, fr := range dump {
		raw, err := model.DecodePayload(fr.Raw)
		if err != nil {
			return fmt.Errorf("failed to restore snapshot of %s: %w", fr.ClientID, err)
		}
		s := model.SnapshotFromPayload(raw)
		s.ClientID = fr.ClientID
		if err := store.Insert(ctx, &s); err != nil {
			return fmt.Errorf("failed to restore snapshot of %s: %w", fr.ClientID, err)
		}
	}

	return nil
}

func (store *MemStorage) Ping(ctx context.Context) error {
	return nil
}

func (store *MemStorage) Close() error {
	return nil
}
