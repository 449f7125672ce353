package ingest

import (
	"fmt"
	"time"
)

// Summary reports the outcome of one ingestion batch. It is returned even
// when nothing new was processed.
type Summary struct {
	ItemsProcessed int `json:"items_processed"`

	// Duplicates are entries whose id was already in the record store.
	Duplicates int `json:"duplicates"`

	// Skipped are entries without a usable abstract.
	Skipped int `json:"skipped"`

	// Malformed are lines that could not be parsed.
	Malformed int `json:"malformed"`

	// Failed are entries dropped after an embedding or write failure.
	Failed int `json:"failed"`

	StartCheckpoint int `json:"start_checkpoint"`
	NewCheckpoint   int `json:"new_checkpoint"`

	// LinesConsumed is NewCheckpoint - StartCheckpoint.
	LinesConsumed int `json:"lines_consumed"`

	Duration time.Duration `json:"duration"`
}

// Message is the human readable one line summary.
func (s *Summary) Message() string {
	return fmt.Sprintf("Ingested %d papers. New Checkpoint: %d", s.ItemsProcessed, s.NewCheckpoint)
}
