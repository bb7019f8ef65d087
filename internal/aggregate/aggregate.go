// Package aggregate derives the dashboard views from the recorder.
package aggregate

import (
	"context"

	"github.com/and161185/health-dashboard/model"
)

const (
	// RecentTableSize is how many snapshots the dashboard table lists.
	RecentTableSize = 50
	// ChartWindow is how many snapshots feed the charts.
	ChartWindow = 20
)

// Reader is the read side of the recorder. Implementations never fail; an
// unavailable store reads as empty.
type Reader interface {
	QueryRecent(ctx context.Context, limit int, clientID string) []model.Snapshot
	CountDistinctClients(ctx context.Context) int64
	CountAll(ctx context.Context) int64
	ListClients(ctx context.Context) []model.ClientRollup
}

type Aggregator struct {
	reader Reader
}

func New(reader Reader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Dashboard is everything the index page renders.
type Dashboard struct {
	Summary model.Summary
	Recent  []model.Snapshot
	Clients []model.ClientRollup
	// ChartInput is oldest first.
	ChartInput []model.Snapshot
}

// Latest returns the newest snapshot across all clients.
func (a *Aggregator) Latest(ctx context.Context) (model.Snapshot, bool) {
	snaps := a.reader.QueryRecent(ctx, 1, "")
	if len(snaps) == 0 {
		return model.Snapshot{}, false
	}
	return snaps[0], true
}

func (a *Aggregator) Summary(ctx context.Context) model.Summary {
	sum := model.Summary{
		TotalClients: a.reader.CountDistinctClients(ctx),
		TotalMetrics: a.reader.CountAll(ctx),
	}
	if latest, ok := a.Latest(ctx); ok {
		sum.LatestCPU = latest.CPUPercent
		sum.LatestRAMPercent = latest.RAMPercent()
	}
	return sum
}

// Clients returns the roster with unnamed clients shown by id.
func (a *Aggregator) Clients(ctx context.Context) []model.ClientRollup {
	clients := a.reader.ListClients(ctx)
	for i := range clients {
		if clients[i].ClientName == "" {
			clients[i].ClientName = clients[i].ClientID
		}
	}
	return clients
}

func (a *Aggregator) Dashboard(ctx context.Context) Dashboard {
	recent := a.reader.QueryRecent(ctx, RecentTableSize, "")

	window := recent
	if len(window) > ChartWindow {
		window = window[:ChartWindow]
	}
	chartInput := make([]model.Snapshot, len(window))
	for i, s := range window {
		chartInput[len(window)-1-i] = s
	}

	sum := model.Summary{
		TotalClients: a.reader.CountDistinctClients(ctx),
		TotalMetrics: a.reader.CountAll(ctx),
	}
	if len(recent) > 0 {
		sum.LatestCPU = recent[0].CPUPercent
		sum.LatestRAMPercent = recent[0].RAMPercent()
	}

	return Dashboard{
		Summary:    sum,
		Recent:     recent,
		Clients:    a.Clients(ctx),
		ChartInput: chartInput,
	}
}
