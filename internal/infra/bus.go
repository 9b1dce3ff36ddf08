package infra

import (
	"sync"
	"time"
)

// EventType represents the type of event in the system
type EventType int

const (
	RecordsFetched EventType = iota
	RecordsGrouped
	DocumentWritten
	DatasetFailed
)

// String returns the string representation of the EventType
func (et EventType) String() string {
	switch et {
	case RecordsFetched:
		return "RecordsFetched"
	case RecordsGrouped:
		return "RecordsGrouped"
	case DocumentWritten:
		return "DocumentWritten"
	case DatasetFailed:
		return "DatasetFailed"
	default:
		return "Unknown"
	}
}

type Event interface{ EventType() EventType }
type Handler func(Event)

// Bus delivers events synchronously, on the publisher's goroutine, to every
// handler subscribed to the event's type. Handlers run in subscription order
// and must be safe for concurrent use when several pipelines share a bus.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Handler
}

func NewBus() *Bus { return &Bus{subs: map[EventType][]Handler{}} }

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.subs[e.EventType()]
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func (b *Bus) Subscribe(evt EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[evt] = append(b.subs[evt], h)
}

// SubscribeAll registers h for every pipeline event type.
func (b *Bus) SubscribeAll(h Handler) {
	for _, evt := range []EventType{RecordsFetched, RecordsGrouped, DocumentWritten, DatasetFailed} {
		b.Subscribe(evt, h)
	}
}

// RecordsFetchedEvent is published after a source query returns.
type RecordsFetchedEvent struct {
	Dataset string
	Records int
	Elapsed time.Duration
}

func (RecordsFetchedEvent) EventType() EventType { return RecordsFetched }

// RecordsGroupedEvent is published after records are folded into a document.
type RecordsGroupedEvent struct {
	Dataset string
	Periods int
	Pairs   int
}

func (RecordsGroupedEvent) EventType() EventType { return RecordsGrouped }

// DocumentWrittenEvent is published after the document reaches its destination.
type DocumentWrittenEvent struct {
	Dataset string
	Path    string
	Bytes   int64
}

func (DocumentWrittenEvent) EventType() EventType { return DocumentWritten }

// DatasetFailedEvent is published when any stage of a dataset fails.
type DatasetFailedEvent struct {
	Dataset string
	Stage   string
	Err     error
}

func (DatasetFailedEvent) EventType() EventType { return DatasetFailed }
