package classify

import "strings"

// Taxonomy holds the two keyword tiers. Tier1 keywords gate relevance:
// at least one must occur for a posting to be considered a match at all.
// Tier2 keywords are display-only emphasis signals, never used for filtering.
// Both tiers are ordered, matching is case-insensitive, and the taxonomy is
// immutable for the lifetime of a run.
type Taxonomy struct {
	Tier1 []string
	Tier2 []string
}

// Classifier matches free text against a keyword taxonomy.
type Classifier struct {
	tier1 []string // lowercased, taxonomy order preserved
	tier2 []string
}

// New creates a classifier with keywords lowercased once up front.
func New(tax Taxonomy) *Classifier {
	lower := func(kws []string) []string {
		res := make([]string, 0, len(kws))
		for _, kw := range kws {
			res = append(res, strings.ToLower(kw))
		}
		return res
	}
	return &Classifier{tier1: lower(tax.Tier1), tier2: lower(tax.Tier2)}
}

// Classify reports whether text denotes a relevant posting and which keywords
// fired, in taxonomy order. Matching is substring-based, not tokenized: a
// keyword occurring inside an unrelated word still counts. That is an accepted
// heuristic, switching to word-boundary matching would change results.
// Tier2 is not evaluated at all when no Tier1 keyword matches.
func (c *Classifier) Classify(text string) (match bool, tier1Hits, tier2Hits []string) {
	if text == "" {
		return false, nil, nil
	}
	lowered := strings.ToLower(text)

	for _, kw := range c.tier1 {
		if strings.Contains(lowered, kw) {
			tier1Hits = append(tier1Hits, kw)
		}
	}
	if len(tier1Hits) == 0 {
		return false, nil, nil
	}

	for _, kw := range c.tier2 {
		if strings.Contains(lowered, kw) {
			tier2Hits = append(tier2Hits, kw)
		}
	}
	return true, tier1Hits, tier2Hits
}
