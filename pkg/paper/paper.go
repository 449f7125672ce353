// Package paper holds the record schema shared by ingestion and retrieval.
package paper

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const (
	// UnknownTitle is stored when a corpus entry has no title.
	UnknownTitle = "Unknown"

	// UnknownCategory is the vector metadata category for untagged entries.
	UnknownCategory = "unknown"

	// UnknownYear is the vector metadata year for entries without a usable date.
	UnknownYear = "0000"

	// MetadataCategory and MetadataYear are the filterable vector metadata keys.
	MetadataCategory = "category"
	MetadataYear     = "year"
)

// Record is the authoritative content of a paper, stored in the record store.
type Record struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Abstract   string `json:"abstract"`
	Authors    string `json:"authors"`
	Date       string `json:"date"`
	Categories string `json:"categories"`
}

// NewID returns a fresh random identifier for corpus entries that carry none.
// Generated ids are not stable across runs, so an id-less entry that is
// re-read after a crash is ingested again under a new id.
func NewID() string {
	return uuid.NewString()
}

// Metadata derives the small filterable metadata map stored alongside the
// embedding: the first category tag and the 4 character year.
func (r *Record) Metadata() map[string]string {
	return map[string]string{
		MetadataCategory: FirstCategory(r.Categories),
		MetadataYear:     Year(r.Date),
	}
}

// FirstCategory returns the first space-delimited tag of categories.
func FirstCategory(categories string) string {
	fields := strings.Fields(categories)
	if len(fields) == 0 {
		return UnknownCategory
	}
	return fields[0]
}

// Year returns the first 4 characters of date, or UnknownYear if date is
// shorter than that.
func Year(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return UnknownYear
	}
	return date[:4]
}

// SerializeAuthors renders a parsed author list into the serialized form
// kept on the record. A nil list serializes to "[]".
func SerializeAuthors(authors [][]string) string {
	if authors == nil {
		return "[]"
	}
	b, err := json.Marshal(authors)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// AuthorNames renders serialized authors as "First Last" names joined by
// commas. Values that are not a parsed author list are returned unchanged.
func AuthorNames(serialized string) string {
	var authors [][]string
	if err := json.Unmarshal([]byte(serialized), &authors); err != nil {
		return serialized
	}

	names := make([]string, 0, len(authors))
	for _, a := range authors {
		var last, first string
		if len(a) > 0 {
			last = a[0]
		}
		if len(a) > 1 {
			first = a[1]
		}
		if name := strings.TrimSpace(first + " " + last); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
