package types

// EnrichedResult is one hybrid search hit: a vector neighbour joined with
// its relational record.
type EnrichedResult struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"` // Raw distance from the vector index, lower is closer
	Snippet  string  `json:"snippet"`

	// DocumentType is empty when no relational record exists for Filename
	DocumentType DocumentType `json:"document_type,omitempty"`

	// Rank is the 1-based position in the unfiltered vector ranking
	Rank int `json:"rank"`
}

// Resolved reports whether the relational lookup found a record
func (r *EnrichedResult) Resolved() bool {
	return r.DocumentType != ""
}
