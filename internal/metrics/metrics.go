// Package metrics samples host statistics for the status bar and the stats
// endpoint.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// DefaultInterval is the status bar refresh cadence.
const DefaultInterval = time.Second

// RootPath is the mount point whose usage is reported.
const RootPath = "/"

// Stats is one sample. Network speeds are bytes per second across all
// interfaces since the previous sample.
type Stats struct {
	CPUUsage         float64 `json:"cpu_usage"`
	MemoryUsed       uint64  `json:"memory_used"`
	MemoryTotal      uint64  `json:"memory_total"`
	DiskUsagePercent uint64  `json:"disk_usage_percent"`
	NetworkSpeedUp   uint64  `json:"network_speed_up"`
	NetworkSpeedDown uint64  `json:"network_speed_down"`
}

// Sampler turns cumulative counters into rates. It is safe for concurrent
// use. Only Sample advances the rate baseline, so a single loop should own
// it; other readers use Latest.
type Sampler struct {
	mu       sync.Mutex
	prevAt   time.Time
	prevSent uint64
	prevRecv uint64
	last     Stats
	haveLast bool
}

// NewSampler returns a Sampler with no baseline; its first sample reports
// zero network speed.
func NewSampler() *Sampler { return &Sampler{} }

// Sample reads every statistic. A failing probe is logged and leaves its
// fields zero; only a fully failed sample returns an error.
func (s *Sampler) Sample(ctx context.Context) (Stats, error) {
	st, err := s.sample(ctx, true)
	if err != nil {
		return Stats{}, err
	}
	s.mu.Lock()
	s.last, s.haveLast = st, true
	s.mu.Unlock()
	return st, nil
}

// Latest returns the most recent Sample result without touching the rate
// baseline. Before the first Sample it probes once and reports zero
// network speed.
func (s *Sampler) Latest(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	st, ok := s.last, s.haveLast
	s.mu.Unlock()
	if ok {
		return st, nil
	}
	return s.sample(ctx, false)
}

func (s *Sampler) sample(ctx context.Context, advance bool) (Stats, error) {
	var st Stats
	var failed int

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err != nil || len(pct) == 0 {
		slog.Debug("cpu probe failed", "err", err)
		failed++
	} else {
		st.CPUUsage = pct[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		slog.Debug("memory probe failed", "err", err)
		failed++
	} else {
		st.MemoryUsed = vm.Used
		st.MemoryTotal = vm.Total
	}

	if du, err := disk.UsageWithContext(ctx, RootPath); err != nil {
		slog.Debug("disk probe failed", "path", RootPath, "err", err)
		failed++
	} else {
		st.DiskUsagePercent = diskPercent(du.Total, du.Free)
	}

	if io, err := net.IOCountersWithContext(ctx, false); err != nil || len(io) == 0 {
		slog.Debug("network probe failed", "err", err)
		failed++
	} else if advance {
		st.NetworkSpeedUp, st.NetworkSpeedDown = s.rates(time.Now(), io[0].BytesSent, io[0].BytesRecv)
	}

	if failed == 4 {
		return Stats{}, fmt.Errorf("sample host metrics: all probes failed")
	}
	return st, nil
}

func (s *Sampler) rates(now time.Time, sent, recv uint64) (up, down uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.prevAt.IsZero() {
		elapsed := now.Sub(s.prevAt)
		up = rate(s.prevSent, sent, elapsed)
		down = rate(s.prevRecv, recv, elapsed)
	}
	s.prevAt, s.prevSent, s.prevRecv = now, sent, recv
	return up, down
}

// rate returns bytes per second between two cumulative readings. Counter
// resets yield zero.
func rate(prev, cur uint64, elapsed time.Duration) uint64 {
	if cur < prev || elapsed <= 0 {
		return 0
	}
	return uint64(float64(cur-prev) / elapsed.Seconds())
}

func diskPercent(total, free uint64) uint64 {
	if total == 0 || free > total {
		return 0
	}
	return uint64(float64(total-free) / float64(total) * 100)
}

// Loop samples every interval until ctx is done and hands each successful
// sample to fn.
func Loop(ctx context.Context, s *Sampler, interval time.Duration, fn func(Stats)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st, err := s.Sample(ctx)
			if err != nil {
				slog.Warn("metrics sample failed", "err", err)
				continue
			}
			fn(st)
		}
	}
}
