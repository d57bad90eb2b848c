package observability

import (
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Monitor aggregates relay counters. Sends are fire-and-forget, so dropped
// deliveries surface only here, never to callers.
type Monitor struct {
	RoomsCreated    atomic.Uint64
	RoomsEvicted    atomic.Uint64
	EventsDelivered atomic.Uint64
	EventsDropped   atomic.Uint64
	ChatCensored    atomic.Uint64
	PollHits        atomic.Uint64
	PollMisses      atomic.Uint64

	startedAt time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

type Stats struct {
	RoomsCreated    uint64  `json:"rooms_created"`
	RoomsEvicted    uint64  `json:"rooms_evicted"`
	EventsDelivered uint64  `json:"events_delivered"`
	EventsDropped   uint64  `json:"events_dropped"`
	ChatCensored    uint64  `json:"chat_censored"`
	PollHits        uint64  `json:"poll_hits"`
	PollMisses      uint64  `json:"poll_misses"`
	UptimeSeconds   float64 `json:"uptime_seconds"`

	Goroutines int     `json:"goroutines"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	PidStatus  string  `json:"pid_status"`
}

// Snapshot combines the relay counters with process self-stats. Self-stat
// collection failures leave those fields zeroed rather than failing a
// health probe.
func (m *Monitor) Snapshot() Stats {
	stats := Stats{
		RoomsCreated:    m.RoomsCreated.Load(),
		RoomsEvicted:    m.RoomsEvicted.Load(),
		EventsDelivered: m.EventsDelivered.Load(),
		EventsDropped:   m.EventsDropped.Load(),
		ChatCensored:    m.ChatCensored.Load(),
		PollHits:        m.PollHits.Load(),
		PollMisses:      m.PollMisses.Load(),
		UptimeSeconds:   time.Since(m.startedAt).Seconds(),
		Goroutines:      runtime.NumGoroutine(),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats
	}
	if memInfo, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if status, err := p.Status(); err == nil {
		stats.PidStatus = status
	}
	return stats
}
