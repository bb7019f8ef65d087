// Package collector samples host health for the reporting agent.
package collector

import (
	"context"
	"math"
	"net"
	"os"
	"time"

	"github.com/and161185/health-dashboard/model"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

const gib = 1 << 30

// Sampler produces one snapshot payload per Collect call.
type Sampler struct {
	ClientName  string
	PingTarget  string
	PingTimeout time.Duration
	CPUWindow   time.Duration

	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	hostInfo      func(ctx context.Context) (*host.InfoStat, error)
	dial          func(ctx context.Context, network, address string) (net.Conn, error)
	now           func() time.Time
}

// NewSampler reports as clientName, or the hostname when it is empty.
func NewSampler(clientName, pingTarget string) *Sampler {
	if clientName == "" {
		if h, err := os.Hostname(); err == nil {
			clientName = h
		}
	}
	d := &net.Dialer{}
	return &Sampler{
		ClientName:    clientName,
		PingTarget:    pingTarget,
		PingTimeout:   3 * time.Second,
		CPUWindow:     time.Second,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		hostInfo:      host.InfoWithContext,
		dial:          d.DialContext,
		now:           time.Now,
	}
}

// Collect samples the host. Readings that fail are left out of the payload.
func (s *Sampler) Collect(ctx context.Context) map[string]any {
	payload := map[string]any{
		model.FieldTimestamp: s.now().Format("2006-01-02T15:04:05"),
	}
	if s.ClientName != "" {
		payload[model.FieldClientName] = s.ClientName
	}

	if pct, err := s.cpuPercent(ctx, s.CPUWindow, false); err == nil && len(pct) > 0 {
		payload[model.FieldCPUPercent] = round2(pct[0])
	}

	if vm, err := s.virtualMemory(ctx); err == nil {
		payload[model.FieldRAM] = map[string]any{
			"used_gb":  round2(float64(vm.Used) / gib),
			"total_gb": round2(float64(vm.Total) / gib),
			"percent":  round2(vm.UsedPercent),
		}
	}

	if info, err := s.hostInfo(ctx); err == nil {
		payload["platform"] = info.Platform
		payload["os"] = info.OS
		payload["uptime_s"] = info.Uptime
	}

	ping, ok := s.Ping(ctx)
	payload[model.FieldInternetConnected] = ok
	if ok {
		payload[model.FieldPingMS] = round2(float64(ping.Microseconds()) / 1000)
	}

	return payload
}

// Ping measures a TCP connect to PingTarget.
func (s *Sampler) Ping(ctx context.Context) (time.Duration, bool) {
	if s.PingTarget == "" {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.PingTimeout)
	defer cancel()

	start := time.Now()
	conn, err := s.dial(ctx, "tcp", s.PingTarget)
	if err != nil {
		return 0, false
	}
	elapsed := time.Since(start)
	_ = conn.Close()
	return elapsed, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
