package event

import "time"

type Type string

const (
	ChannelCapacityType Type = "CHANNEL_CAPACITY"
	ProcessStatsType    Type = "PROCESS_STATS"
	DomainEchoType      Type = "DOMAIN_ECHO"
	CensorshipHit       Type = "CENSORSHIP_HIT"
)

// Event is the telemetry envelope. Unlike DomainEvent it carries no business
// meaning: losing one is acceptable, so producers send with a non-blocking
// select and drop on a full channel.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type ProcessStats struct {
	PID        int32
	Status     string
	Cpu        float64
	Ram        uint64
	Goroutines int
}

type Censored struct {
	Word string
}
