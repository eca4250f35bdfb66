package aggregate

import (
	"github.com/go-pkgz/lgr"

	"github.com/umputun/tenderscope/pkg/classify"
	"github.com/umputun/tenderscope/pkg/domain"
	"github.com/umputun/tenderscope/pkg/history"
)

// Aggregator merges per-source candidate lists into a single ordered list of
// new postings, filtering out everything already reported in prior runs.
// Identity is about the posting, not the source: the same posting appearing
// under two sources is reported once, attributed to the source that came
// first in the given order.
type Aggregator struct {
	classifier *classify.Classifier
}

// New creates an aggregator using the given classifier.
func New(c *classify.Classifier) *Aggregator {
	return &Aggregator{classifier: c}
}

// Aggregate walks source results in order, classifies each candidate, drops
// non-matches and previously seen postings, and returns the surviving items
// with an updated history record. The input record is never mutated, callers
// can compare before/after or abort without persisting.
//
// A source with Err set contributes nothing this run; its failure was already
// contained at the adapter and is only logged here. Order is preserved both
// across sources and within each source's candidate list.
func (a *Aggregator) Aggregate(results []domain.SourceResult, hist history.Record) (newItems []domain.SourceItem, updated history.Record) {
	updated = hist.Clone()

	for _, res := range results {
		if res.Err != nil {
			lgr.Printf("[WARN] source %s failed, no candidates this run: %v", res.Name, res.Err)
			continue
		}

		newCount := 0
		for _, p := range res.Postings {
			match, t1, t2 := a.classifier.Classify(p.MatchText())
			if !match {
				continue
			}

			classified := domain.ClassifiedPosting{Posting: p, Tier1Hits: t1, Tier2Hits: t2}

			key, ok := history.Key(p)
			if !ok {
				// unkeyable postings are always new and never persisted,
				// a shared key would collide across unrelated postings
				lgr.Printf("[DEBUG] unkeyable posting from %s reported without dedup", res.Name)
				newItems = append(newItems, domain.SourceItem{Source: res.Name, Posting: classified})
				continue
			}

			if updated.Seen(key) {
				continue
			}

			newItems = append(newItems, domain.SourceItem{Source: res.Name, Posting: classified})
			updated.Mark(key, history.Entry{Source: res.Name, Title: p.Title, URL: p.URL})
			newCount++
		}

		if newCount > 0 {
			lgr.Printf("[INFO] %d new postings from %s", newCount, res.Name)
		}
	}

	return newItems, updated
}
