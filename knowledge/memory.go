package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Document is an entry in the in-memory index.
type Document struct {
	Source  string
	Scope   string
	Content string
}

// MemoryIndex is a keyword-overlap index suitable for tests, demos and small
// deployments. Production deployments plug a real retrieval backend into the
// Searcher interface instead.
type MemoryIndex struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add indexes a document.
func (m *MemoryIndex) Add(doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
}

// Search implements Searcher with term-overlap scoring. Han characters are
// treated as single-character terms so mixed-script queries still match.
func (m *MemoryIndex) Search(ctx context.Context, scope, query string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []Result
	for _, doc := range m.docs {
		if scope != "" && doc.Scope != scope {
			continue
		}
		content := strings.ToLower(doc.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, Result{
			SourceName:     doc.Source,
			Excerpts:       excerpts(doc.Content, terms),
			RelevanceScore: float64(matched) / float64(len(terms)),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results, nil
}

// tokenize splits a query into lowercase match terms: whitespace-separated
// words for Latin text, individual characters for Han text.
func tokenize(query string) []string {
	var terms []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			terms = append(terms, strings.ToLower(word.String()))
			word.Reset()
		}
	}
	for _, r := range query {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			terms = append(terms, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms
}

// excerpts returns the sentences of content that contain at least one term,
// capped at three.
func excerpts(content string, terms []string) []string {
	sentences := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '。' || r == '\n' || r == '！' || r == '？'
	})
	var out []string
	for _, s := range sentences {
		low := strings.ToLower(s)
		for _, term := range terms {
			if strings.Contains(low, term) {
				out = append(out, strings.TrimSpace(s))
				break
			}
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}
