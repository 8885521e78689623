package observability

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ChannelUsage is a point-in-time sample of one internal channel.
type ChannelUsage struct {
	Length   int `json:"length"`
	Capacity int `json:"capacity"`
}

// Stats aggregates every metric served on the stats endpoint.
type Stats struct {
	// --- MESSAGE PIPELINE ---
	MessagesIngested  uint64 `json:"messages_ingested"`
	MessagesDelivered uint64 `json:"messages_delivered"`
	DeliveryDropped   uint64 `json:"delivery_dropped"`
	MediaStored       uint64 `json:"media_stored"`
	CensoredMessages  uint64 `json:"censored_messages"`

	// --- LIVE CONNECTIONS ---
	ConnectedUsers int                     `json:"connected_users"`
	Queues         map[string]ChannelUsage `json:"queues"`

	// --- SYSTEM METRICS ---
	PidStatus     string  `json:"pid_status"`
	CpuPercent    float64 `json:"cpu_percent"`
	RamBytes      uint64  `json:"ram_bytes"`
	AllocMemMb    uint64  `json:"alloc_mem_mb"`
	NumGC         uint32  `json:"num_gc"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Monitor gathers runtime counters from the whole pipeline. Counters are
// atomic so the hot path never takes the mutex; the mutex only guards the
// sampled (non-monotonic) values.
type Monitor struct {
	log     *slog.Logger
	started time.Time

	ingested  uint64
	delivered uint64
	dropped   uint64
	media     uint64
	censored  uint64

	mu        sync.RWMutex
	pidStatus string
	cpu       float64
	ram       uint64
	routines  int
	queues    map[string]ChannelUsage
	connected func() int
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{
		log:     log,
		started: time.Now(),
		queues:  make(map[string]ChannelUsage),
	}
}

// TrackConnections registers the source of the connected-users gauge,
// typically the registry's Count method.
func (m *Monitor) TrackConnections(count func() int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = count
}

func (m *Monitor) IncrIngested() {
	atomic.AddUint64(&m.ingested, 1)
}

func (m *Monitor) IncrDelivered() {
	atomic.AddUint64(&m.delivered, 1)
}

func (m *Monitor) IncrDeliveryDropped() {
	atomic.AddUint64(&m.dropped, 1)
}

func (m *Monitor) IncrMediaStored() {
	atomic.AddUint64(&m.media, 1)
}

func (m *Monitor) IncrCensoredMessages() {
	atomic.AddUint64(&m.censored, 1)
}

// RecordProcess stores the latest self-process sample.
func (m *Monitor) RecordProcess(status string, cpu float64, ram uint64, goroutines int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pidStatus = status
	m.cpu = cpu
	m.ram = ram
	m.routines = goroutines
}

// RecordQueue stores the latest usage sample of one internal channel.
func (m *Monitor) RecordQueue(name string, length, capacity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[name] = ChannelUsage{Length: length, Capacity: capacity}
}

// Snapshot assembles the current Stats. Go memory metrics are read on the
// spot, everything else comes from the recorded samples and counters.
func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	defer m.mu.RUnlock()

	queues := make(map[string]ChannelUsage, len(m.queues))
	for name, usage := range m.queues {
		queues[name] = usage
	}

	connected := 0
	if m.connected != nil {
		connected = m.connected()
	}

	return Stats{
		MessagesIngested:  atomic.LoadUint64(&m.ingested),
		MessagesDelivered: atomic.LoadUint64(&m.delivered),
		DeliveryDropped:   atomic.LoadUint64(&m.dropped),
		MediaStored:       atomic.LoadUint64(&m.media),
		CensoredMessages:  atomic.LoadUint64(&m.censored),
		ConnectedUsers:    connected,
		Queues:            queues,
		PidStatus:         m.pidStatus,
		CpuPercent:        m.cpu,
		RamBytes:          m.ram,
		AllocMemMb:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
		Goroutines:        m.routines,
		UptimeSeconds:     int64(time.Since(m.started).Seconds()),
	}
}
