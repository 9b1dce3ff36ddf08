package infra

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeEnum(t *testing.T) {
	t.Run("EventType.String() returns correct values", func(t *testing.T) {
		assert.Equal(t, "RecordsFetched", RecordsFetched.String())
		assert.Equal(t, "DocumentWritten", DocumentWritten.String())
		assert.Equal(t, "DatasetFailed", DatasetFailed.String())
		assert.Equal(t, "Unknown", EventType(999).String())
	})
}

func TestBus(t *testing.T) {
	t.Run("can subscribe to and publish pipeline events", func(t *testing.T) {
		// Arrange
		bus := NewBus()
		var receivedEvents []Event

		handler := func(e Event) {
			receivedEvents = append(receivedEvents, e)
		}

		bus.Subscribe(RecordsFetched, handler)
		bus.Subscribe(RecordsGrouped, handler)

		// Act
		bus.Publish(RecordsFetchedEvent{Dataset: "wdi", Records: 12})
		bus.Publish(RecordsGroupedEvent{Dataset: "wdi", Periods: 2, Pairs: 12})

		// Assert
		assert.Len(t, receivedEvents, 2)
		assert.Equal(t, RecordsFetched, receivedEvents[0].EventType())
		assert.Equal(t, RecordsGrouped, receivedEvents[1].EventType())
	})

	t.Run("handlers only receive events they subscribed to", func(t *testing.T) {
		// Arrange
		bus := NewBus()
		var written []Event
		var failed []Event

		bus.Subscribe(DocumentWritten, func(e Event) { written = append(written, e) })
		bus.Subscribe(DatasetFailed, func(e Event) { failed = append(failed, e) })

		// Act
		bus.Publish(DocumentWrittenEvent{Dataset: "wdi", Path: "data.json", Bytes: 42})
		bus.Publish(DatasetFailedEvent{Dataset: "wdi", Stage: "query", Err: errors.New("boom")})
		bus.Publish(RecordsFetchedEvent{Dataset: "wdi"})

		// Assert
		assert.Len(t, written, 1)
		assert.Len(t, failed, 1)
		assert.Equal(t, "query", failed[0].(DatasetFailedEvent).Stage)
	})

	t.Run("subscribe all receives every pipeline event", func(t *testing.T) {
		bus := NewBus()
		var types []EventType
		bus.SubscribeAll(func(e Event) { types = append(types, e.EventType()) })

		bus.Publish(RecordsFetchedEvent{})
		bus.Publish(RecordsGroupedEvent{})
		bus.Publish(DocumentWrittenEvent{})
		bus.Publish(DatasetFailedEvent{})

		assert.Equal(t, []EventType{RecordsFetched, RecordsGrouped, DocumentWritten, DatasetFailed}, types)
	})

	t.Run("concurrent publishers are safe", func(t *testing.T) {
		bus := NewBus()
		var mu sync.Mutex
		count := 0
		bus.Subscribe(RecordsFetched, func(Event) {
			mu.Lock()
			count++
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				bus.Publish(RecordsFetchedEvent{Records: i})
			}()
		}
		wg.Wait()

		assert.Equal(t, 8, count)
	})
}
