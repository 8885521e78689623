//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chatline/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink consumes fanned-out events. Implementations must respect ctx:
// the fanout bounds every Consume call with a timeout.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// ConnectionHandle is one user's live real-time session. Push enqueues a
// serialized frame into the connection's FIFO send queue and never blocks;
// a closed or saturated connection returns an error the caller may only log.
type ConnectionHandle interface {
	Push(payload []byte) error
	Close()
}

// IRegistry maps a user to at most one live connection. Register is
// last-write-wins: a newer handle supersedes and closes the previous one.
// Unregister is a no-op unless the departing handle is still the current one,
// so a slow disconnect can never evict a fresher connection.
type IRegistry interface {
	Register(userID string, handle ConnectionHandle)
	Unregister(userID string, handle ConnectionHandle)
	Lookup(userID string) (ConnectionHandle, bool)
	Online() []string
	Count() int
}

// Dispatcher is the fire-and-forget entry into the event pipeline.
type Dispatcher interface {
	Dispatch(e event.DomainEvent)
}

type IOrchestrator interface {
	Dispatcher
	RegisterSinks(sink ...EventSink)
	Connect(userID string, handle ConnectionHandle)
	Disconnect(userID string, handle ConnectionHandle)
	Start(ctx context.Context) error
	Stop()
}
