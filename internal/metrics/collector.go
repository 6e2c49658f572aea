// Package metrics implements the periodic system/agent metrics collector
// referenced by defaults.metrics in the root configuration document,
// sampling host CPU and memory via gopsutil and a per-agent uptime/status
// snapshot for the dashboard's metrics fan-out.
package metrics

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/agentforge/agentforge/internal/model"
)

// Config mirrors config.MetricsConfig.
type Config struct {
	Enabled        bool
	EnableGPU      bool
	EnablePerAgent bool
}

// Snapshot is one sample of system and per-agent resource usage.
type Snapshot struct {
	Timestamp    time.Time
	CPUPercent   float64
	MemPercent   float64
	ActiveAgents int
	PerAgent     map[string]AgentUsage // populated only when EnablePerAgent
}

// AgentUsage is a per-agent resource sample. gopsutil has no notion of a
// tmux pane's resource footprint, so this tracks only what the supervisor
// itself knows about an agent: how long it has been running.
type AgentUsage struct {
	Status model.Status
	Uptime time.Duration
}

// Collector samples system and agent resource usage on an interval.
type Collector struct {
	cfg Config
}

// New builds a Collector. GPU sampling is accepted in Config for parity
// with the configuration schema but never implemented: no GPU metrics
// library is wired, and gopsutil/v4 itself ships no GPU module.
func New(cfg Config) *Collector {
	return &Collector{cfg: cfg}
}

// Collect satisfies status.MetricsCollector.
func (c *Collector) Collect(ctx context.Context, agents []*model.Agent) any {
	if !c.cfg.Enabled {
		return nil
	}

	snap := Snapshot{Timestamp: time.Now(), ActiveAgents: 0}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm != nil {
		snap.MemPercent = vm.UsedPercent
	}

	if c.cfg.EnablePerAgent {
		snap.PerAgent = make(map[string]AgentUsage, len(agents))
	}
	for _, a := range agents {
		if !a.IsLive() {
			continue
		}
		snap.ActiveAgents++
		if snap.PerAgent != nil {
			snap.PerAgent[a.ID] = AgentUsage{Status: a.Status, Uptime: time.Since(a.CreatedAt)}
		}
	}

	return snap
}
