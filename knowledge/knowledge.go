// Package knowledge defines the knowledge lookup collaborator used by the
// flow engine's search action and by the response synthesizer.
package knowledge

import "context"

// Result is one scored hit from a knowledge search.
type Result struct {
	SourceName     string   `json:"source_name"`
	Excerpts       []string `json:"excerpts"`
	RelevanceScore float64  `json:"relevance_score"`
}

// Searcher looks up knowledge excerpts within a scope (e.g. a department or
// topic collection). Results are ordered by descending relevance.
type Searcher interface {
	Search(ctx context.Context, scope, query string) ([]Result, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, scope, query string) ([]Result, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, scope, query string) ([]Result, error) {
	return f(ctx, scope, query)
}
