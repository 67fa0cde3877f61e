package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex() *MemoryIndex {
	idx := NewMemoryIndex()
	idx.Add(Document{
		Source:  "visiting_hours",
		Scope:   "hospital",
		Content: "门诊时间为每天上午8点到下午5点。周末仅上午开放。",
	})
	idx.Add(Document{
		Source:  "appointment_policy",
		Scope:   "hospital",
		Content: "Appointments can be rescheduled up to 24 hours in advance. Cancellations after that incur no fee.",
	})
	idx.Add(Document{
		Source:  "billing_faq",
		Scope:   "billing",
		Content: "Invoices are issued monthly. Payment is due within 30 days.",
	})
	return idx
}

func TestMemoryIndexSearchScoped(t *testing.T) {
	idx := seedIndex()

	results, err := idx.Search(context.Background(), "hospital", "reschedule appointments")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "appointment_policy", results[0].SourceName)
	assert.NotEmpty(t, results[0].Excerpts)
	assert.Greater(t, results[0].RelevanceScore, 0.0)
}

func TestMemoryIndexSearchHanTerms(t *testing.T) {
	idx := seedIndex()

	results, err := idx.Search(context.Background(), "hospital", "门诊时间")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "visiting_hours", results[0].SourceName)
}

func TestMemoryIndexScopeIsolation(t *testing.T) {
	idx := seedIndex()

	results, err := idx.Search(context.Background(), "billing", "appointment")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndexOrderedByRelevance(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(Document{Source: "partial", Scope: "s", Content: "alpha only"})
	idx.Add(Document{Source: "full", Scope: "s", Content: "alpha beta together"})

	results, err := idx.Search(context.Background(), "s", "alpha beta")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "full", results[0].SourceName)
	assert.GreaterOrEqual(t, results[0].RelevanceScore, results[1].RelevanceScore)
}

func TestMemoryIndexEmptyQuery(t *testing.T) {
	idx := seedIndex()
	results, err := idx.Search(context.Background(), "hospital", "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}
