// Package model defines the entities the retrieval core operates on:
// documents, their passages, and extracted user memories. Every entity is
// scoped by an owner ID; no query in this codebase may cross owners.
package model

import "time"

// YearRange is the validity window of a passage. A nil EndYear means the
// passage is still current ("ongoing").
type YearRange struct {
	StartYear *int `json:"start_year"`
	EndYear   *int `json:"end_year"`
}

// Covers reports whether the range covers the given query year. A nil
// EndYear covers every year from StartYear through the present calendar year.
func (r YearRange) Covers(year, currentYear int) bool {
	if r.StartYear != nil && *r.StartYear > year {
		return false
	}
	if r.EndYear == nil {
		return year <= currentYear
	}
	return *r.EndYear >= year
}

// PassageMetadata is the recognized metadata attached to a passage. It is a
// closed record rather than an open map so shape drift is caught at compile
// time.
type PassageMetadata struct {
	// Timestamp overrides the passage's creation time for freshness checks
	// when set. RFC 3339.
	Timestamp string `json:"timestamp,omitempty"`
	// FileType is the tag of the originating file ("md", "txt", "pdf", ...).
	// Empty means untagged.
	FileType string `json:"file_type,omitempty"`
	// Title of the owning document, carried for display.
	Title string `json:"title,omitempty"`
}

// Passage is a retrievable unit of document text.
type Passage struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	OwnerID    string          `json:"owner_id"`
	Ordinal    int             `json:"ordinal"`
	Content    string          `json:"content"`
	TokenCount int             `json:"token_count"`
	Metadata   PassageMetadata `json:"metadata"`
	Embedding  []float32       `json:"embedding,omitempty"`
	Validity   *YearRange      `json:"validity,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`

	// Distance is the owner-relative distance attached at retrieval time.
	// Nil when the passage did not come from a scored search.
	Distance *float64 `json:"distance,omitempty"`
}

// Confidence derives a [0,1] relevance confidence from the retrieval
// distance: max(0, 1-distance). The second return is false when no distance
// was attached.
func (p *Passage) Confidence() (float64, bool) {
	if p.Distance == nil {
		return 0, false
	}
	c := 1 - *p.Distance
	if c < 0 {
		c = 0
	}
	return c, true
}

// EffectiveTimestamp is the timestamp used for freshness checks: the
// metadata override when parseable, else the creation time. The second
// return is false when neither is usable.
func (p *Passage) EffectiveTimestamp() (time.Time, bool) {
	if p.Metadata.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, p.Metadata.Timestamp)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	if p.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return p.CreatedAt, true
}

// Document owns 1..N passages. Deleting a document cascades to its passages.
type Document struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Source    string    `json:"source"` // unique per owner
	Title     string    `json:"title,omitempty"`
	FileType  string    `json:"file_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
