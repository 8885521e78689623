// Package runtime handles event propagation, live connection tracking and
// worker supervision. It orchestrates the system without containing business
// logic or domain rules.
package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chatline/contract"
	"chatline/domain/event"
	"chatline/moderation"
	"chatline/observability"
	"chatline/runtime/workers"
)

//go:embed censored/*
var censoredFolder embed.FS

// BuildModerator loads the embedded censored dictionaries and compiles the
// moderation automaton. Done once at startup, before the server accepts
// traffic, because the Aho-Corasick build is CPU heavy.
func BuildModerator(log *slog.Logger, charReplacement rune) (moderation.Moderator, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return moderation.Moderator{}, err
	}

	log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	return moderation.NewModerator(data.Words, charReplacement, log)
}

type Orchestrator struct {
	mu                   sync.Mutex
	log                  *slog.Logger
	permanentSinks       []contract.EventSink
	supervisor           contract.ISupervisor
	registry             contract.IRegistry
	monitor              *observability.Monitor
	events               chan event.DomainEvent
	telemetry            chan event.Event
	sinkTimeout          time.Duration
	metricInterval       time.Duration
	latencyThreshold     time.Duration
	lowCapacityThreshold int
}

var _ contract.IOrchestrator = (*Orchestrator)(nil)

func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor,
	registry *Registry, monitor *observability.Monitor,
	bufferSize int, sinkTimeout, metricInterval, latencyThreshold time.Duration,
	lowCapacityThreshold int) *Orchestrator {
	monitor.TrackConnections(registry.Count)
	return &Orchestrator{
		log:                  log,
		permanentSinks:       nil,
		supervisor:           supervisor,
		registry:             registry,
		monitor:              monitor,
		events:               make(chan event.DomainEvent, bufferSize),
		telemetry:            make(chan event.Event, bufferSize),
		sinkTimeout:          sinkTimeout,
		metricInterval:       metricInterval,
		latencyThreshold:     latencyThreshold,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

// RegisterSinks adds permanent consumers of the domain event stream.
// Must be called before Start.
func (o *Orchestrator) RegisterSinks(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Dispatch enqueues a domain event for fan-out. It never blocks the caller:
// when the pipeline is saturated the event is dropped with a warning, the
// durable store already holds the message.
func (o *Orchestrator) Dispatch(e event.DomainEvent) {
	select {
	case o.events <- e:
	default:
		o.log.Warn("Domain event channel full, dropping event")
	}
}

// Connect registers a user's live connection and announces the new
// presence roster to everyone.
func (o *Orchestrator) Connect(userID string, handle contract.ConnectionHandle) {
	o.registry.Register(userID, handle)
	o.Dispatch(event.PresenceChanged{
		UserID: userID,
		Joined: true,
		Online: o.registry.Online(),
		At:     time.Now().UTC(),
	})
}

// Disconnect removes a user's connection if it is still the current one,
// then announces the shrunken roster.
func (o *Orchestrator) Disconnect(userID string, handle contract.ConnectionHandle) {
	o.registry.Unregister(userID, handle)
	o.Dispatch(event.PresenceChanged{
		UserID: userID,
		Joined: false,
		Online: o.registry.Online(),
		At:     time.Now().UTC(),
	})
}

// Start initiates the orchestrator by preparing all components and then
// starting the supervisor. It uses a preparation pattern to minimize mutex
// locking time. Blocks until ctx is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	fanoutWorker := o.prepareFanout()
	telemetryWorker := o.prepareTelemetry()
	capacityWorker := workers.NewChannelCapacityWorker(o.log, []workers.NamedChannel{
		{Name: "events", Channel: o.events},
		{Name: "telemetry", Channel: o.telemetry},
	}, o.telemetry, o.metricInterval)
	selfStatsWorker := workers.NewSelfStatsWorker(o.log, o.telemetry, o.metricInterval)
	reporterWorker := workers.NewReporterWorker(o.log, o.monitor, 10*o.metricInterval)

	// 2. Critical Section (Short Lock)
	// We only lock to update the supervisor.
	o.mu.Lock()
	o.supervisor.Add(fanoutWorker)
	o.supervisor.Add(telemetryWorker)
	o.supervisor.Add(capacityWorker)
	o.supervisor.Add(selfStatsWorker)
	o.supervisor.Add(reporterWorker)
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// prepareFanout builds the single consumer of the domain event stream.
func (o *Orchestrator) prepareFanout() contract.Worker {
	o.mu.Lock()
	sinks := make([]contract.EventSink, len(o.permanentSinks))
	copy(sinks, o.permanentSinks)
	o.mu.Unlock()

	return workers.NewEventFanout(o.log, sinks, o.registry,
		o.events, o.telemetry, o.sinkTimeout, o.monitor)
}

// prepareTelemetry builds the telemetry consumer with its handler chain.
func (o *Orchestrator) prepareTelemetry() contract.Worker {
	handlers := []event.Handler{
		event.NewChannelCapacityHandler(o.log, o.lowCapacityThreshold, o.monitor),
		event.NewProcessStatsHandler(o.log, o.monitor),
		event.NewLatencyHandler(o.log, o.latencyThreshold),
		event.NewCensoredHandler(o.log),
	}
	return workers.NewTelemetryWorker(o.log, o.telemetry, handlers)
}

// Stop initiates a graceful shutdown of the orchestrator.
// It cancels the supervision context to signal workers to stop.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
