package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/papercomputeco/papers/pkg/paper"
)

// ErrMalformed is returned when a corpus line cannot be parsed into an Entry.
var ErrMalformed = errors.New("malformed corpus entry")

// Entry is one record of the corpus, as found in the arXiv metadata snapshot.
// Unknown fields are ignored.
type Entry struct {
	RawID         json.RawMessage `json:"id,omitempty"`
	Title         string          `json:"title"`
	Abstract      string          `json:"abstract"`
	AuthorsParsed [][]string      `json:"authors_parsed"`
	UpdateDate    string          `json:"update_date"`
	Categories    string          `json:"categories"`
}

// Parse decodes a single corpus line.
func Parse(line []byte) (*Entry, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	e := &Entry{}
	if err := json.Unmarshal(line, e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return e, nil
}

// ID returns the identifier supplied by the corpus, or "" when the entry has
// none. Numeric identifiers are returned in their literal form.
func (e *Entry) ID() string {
	raw := bytes.TrimSpace(e.RawID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

// HasAbstract reports whether the entry carries a non-blank abstract.
// Entries without one are never indexed.
func (e *Entry) HasAbstract() bool {
	return strings.TrimSpace(e.Abstract) != ""
}

// Record converts the entry into a paper.Record stored under id.
func (e *Entry) Record(id string) *paper.Record {
	title := e.Title
	if strings.TrimSpace(title) == "" {
		title = paper.UnknownTitle
	}

	return &paper.Record{
		ID:         id,
		Title:      title,
		Abstract:   e.Abstract,
		Authors:    paper.SerializeAuthors(e.AuthorsParsed),
		Date:       e.UpdateDate,
		Categories: e.Categories,
	}
}
