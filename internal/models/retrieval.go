package models

// RetrievalResult holds the assembled context and source labels for a query.
// Sources are deduplicated preserving first-seen order. Built per query, never
// persisted.
type RetrievalResult struct {
	Context string   `json:"context"`
	Sources []string `json:"sources"`
}

// Empty reports whether retrieval found no context.
func (r *RetrievalResult) Empty() bool {
	return r.Context == ""
}
