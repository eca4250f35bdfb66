package aggregate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tenderscope/pkg/classify"
	"github.com/umputun/tenderscope/pkg/domain"
	"github.com/umputun/tenderscope/pkg/history"
)

func newTestAggregator() *Aggregator {
	return New(classify.New(classify.Taxonomy{
		Tier1: []string{"marine", "ocean"},
		Tier2: []string{"consultant"},
	}))
}

func TestAggregator_Aggregate_NewItem(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "ReliefWeb", Postings: []domain.Posting{
			{Source: "ReliefWeb", Title: "Senior Ocean Policy Consultant", URL: "https://x/1"},
		}},
	}

	newItems, updated := agg.Aggregate(results, history.Record{})

	require.Len(t, newItems, 1)
	assert.Equal(t, "ReliefWeb", newItems[0].Source)
	assert.Equal(t, []string{"ocean"}, newItems[0].Posting.Tier1Hits)
	assert.Equal(t, []string{"consultant"}, newItems[0].Posting.Tier2Hits)

	require.Len(t, updated, 1)
	key, ok := history.Key(results[0].Postings[0])
	require.True(t, ok)
	assert.True(t, updated.Seen(key))
}

func TestAggregator_Aggregate_NonMatchDiscarded(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "UNDP", Postings: []domain.Posting{
			{Title: "Senior Accountant", URL: "https://x/acc"},
		}},
	}

	newItems, updated := agg.Aggregate(results, history.Record{})
	assert.Empty(t, newItems)
	assert.Empty(t, updated, "non-matches never touch history")
}

func TestAggregator_Aggregate_SeenDiscarded(t *testing.T) {
	agg := newTestAggregator()

	posting := domain.Posting{Title: "Marine Expert", URL: "https://x/1"}
	key, ok := history.Key(posting)
	require.True(t, ok)

	hist := history.Record{}
	hist.Mark(key, history.Entry{Source: "UNDP", Title: posting.Title, URL: posting.URL})

	newItems, updated := agg.Aggregate([]domain.SourceResult{
		{Name: "UNDP", Postings: []domain.Posting{posting}},
	}, hist)

	assert.Empty(t, newItems)
	assert.Equal(t, hist, updated)
}

func TestAggregator_Aggregate_Idempotent(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "A", Postings: []domain.Posting{
			{Title: "Marine Advisor", URL: "https://x/1"},
			{Title: "Ocean Analyst", URL: "https://x/2"},
		}},
	}

	first, updated := agg.Aggregate(results, history.Record{})
	require.Len(t, first, 2)

	second, updated2 := agg.Aggregate(results, updated)
	assert.Empty(t, second, "second run with same candidates yields nothing")
	assert.Equal(t, updated, updated2)
}

func TestAggregator_Aggregate_CrossSourceDedup(t *testing.T) {
	agg := newTestAggregator()

	posting := domain.Posting{Title: "Marine Advisor", URL: "https://x/1"}
	results := []domain.SourceResult{
		{Name: "A", Postings: []domain.Posting{posting}},
		{Name: "B", Postings: []domain.Posting{posting}},
	}

	newItems, updated := agg.Aggregate(results, history.Record{})

	require.Len(t, newItems, 1)
	assert.Equal(t, "A", newItems[0].Source, "attributed to the first source in order")

	key, ok := history.Key(posting)
	require.True(t, ok)
	assert.Equal(t, "A", updated[key].Source)
}

func TestAggregator_Aggregate_InputHistoryNotMutated(t *testing.T) {
	agg := newTestAggregator()

	hist := history.Record{}
	_, updated := agg.Aggregate([]domain.SourceResult{
		{Name: "A", Postings: []domain.Posting{{Title: "Marine Advisor", URL: "https://x/1"}}},
	}, hist)

	assert.Empty(t, hist, "input record stays untouched")
	assert.Len(t, updated, 1)
}

func TestAggregator_Aggregate_FailedSourceIsolated(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "X", Err: errors.New("fetch failed")},
		{Name: "B", Postings: []domain.Posting{{Title: "Ocean Analyst", URL: "https://x/2"}}},
	}

	newItems, _ := agg.Aggregate(results, history.Record{})

	require.Len(t, newItems, 1)
	assert.Equal(t, "B", newItems[0].Source)
}

func TestAggregator_Aggregate_UnkeyableAlwaysNewNeverPersisted(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "A", Postings: []domain.Posting{{Body: "marine posting with no title or url"}}},
	}

	first, updated := agg.Aggregate(results, history.Record{})
	require.Len(t, first, 1)
	assert.Empty(t, updated, "unkeyable posting not persisted")

	// reported again on the next run, duplicate reporting is the accepted cost
	second, _ := agg.Aggregate(results, updated)
	assert.Len(t, second, 1)
}

func TestAggregator_Aggregate_OrderPreserved(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "B", Postings: []domain.Posting{
			{Title: "Marine role 2", URL: "https://b/2"},
			{Title: "Marine role 1", URL: "https://b/1"},
		}},
		{Name: "A", Postings: []domain.Posting{
			{Title: "Ocean role", URL: "https://a/1"},
		}},
	}

	newItems, _ := agg.Aggregate(results, history.Record{})

	require.Len(t, newItems, 3)
	assert.Equal(t, "B", newItems[0].Source)
	assert.Equal(t, "Marine role 2", newItems[0].Posting.Title)
	assert.Equal(t, "Marine role 1", newItems[1].Posting.Title)
	assert.Equal(t, "A", newItems[2].Source)
}

func TestAggregator_Aggregate_BodyUsedForMatching(t *testing.T) {
	agg := newTestAggregator()

	results := []domain.SourceResult{
		{Name: "A", Postings: []domain.Posting{
			{Title: "Technical Specialist", URL: "https://x/1", Body: "supporting coastal and marine protected areas"},
		}},
	}

	newItems, _ := agg.Aggregate(results, history.Record{})
	require.Len(t, newItems, 1)
	assert.Equal(t, []string{"marine"}, newItems[0].Posting.Tier1Hits)
}
