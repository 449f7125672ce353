package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypePaperIngested is emitted after a paper is written to both stores.
	EventTypePaperIngested = "papers.paper.ingested"

	// EventTypeBatchCompleted is emitted after an ingestion batch persists its checkpoint.
	EventTypeBatchCompleted = "papers.batch.completed"

	sourceService = "papers"
)

// Event is a transport-neutral event envelope. Exactly one of Paper or Batch
// is set, matching EventType.
type Event struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	Paper         *PaperIngested  `json:"paper,omitempty"`
	Batch         *BatchCompleted `json:"batch,omitempty"`
}

// EventSource identifies the emitter.
type EventSource struct {
	Service string `json:"service"`
	Corpus  string `json:"corpus,omitempty"`
}

// PaperIngested describes one indexed paper.
type PaperIngested struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Year       string `json:"year"`
	LineIndex  int    `json:"line_index"`
	Dimensions int    `json:"dimensions"`
}

// BatchCompleted summarizes an ingestion run.
type BatchCompleted struct {
	ItemsProcessed  int   `json:"items_processed"`
	Duplicates      int   `json:"duplicates"`
	Skipped         int   `json:"skipped"`
	Malformed       int   `json:"malformed"`
	Failed          int   `json:"failed"`
	StartCheckpoint int   `json:"start_checkpoint"`
	NewCheckpoint   int   `json:"new_checkpoint"`
	DurationMs      int64 `json:"duration_ms"`
}

// Key returns the partitioning key for the event.
func (e *Event) Key() string {
	if e.Paper != nil {
		return e.Paper.ID
	}
	return e.EventType
}

func newEvent(eventType, corpus string) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			Service: sourceService,
			Corpus:  corpus,
		},
	}
}

// NewPaperIngestedEvent builds a papers.paper.ingested event.
func NewPaperIngestedEvent(corpus string, p PaperIngested) *Event {
	e := newEvent(EventTypePaperIngested, corpus)
	e.Paper = &p
	return e
}

// NewBatchCompletedEvent builds a papers.batch.completed event.
func NewBatchCompletedEvent(corpus string, b BatchCompleted) *Event {
	e := newEvent(EventTypeBatchCompleted, corpus)
	e.Batch = &b
	return e
}
