package domain

// Posting represents a raw candidate posting produced by a source adapter.
// It is not yet known to be relevant.
type Posting struct {
	Source   string
	Title    string
	URL      string
	Body     string // optional detail-page text, empty when the adapter matched on title only
	Deadline string // optional, best-effort capture from the listing
	Summary  string // optional short snippet for display
}

// ClassifiedPosting is a posting confirmed relevant by the keyword classifier,
// carrying the matched keyword evidence. Tier1Hits is never empty.
type ClassifiedPosting struct {
	Posting
	Tier1Hits []string
	Tier2Hits []string
}

// SourceResult holds the complete output of one adapter for one run.
// Err set means the source produced nothing this run; Postings and Err
// are never both populated.
type SourceResult struct {
	Name     string
	Postings []Posting
	Err      error
}

// SourceItem is a new posting attributed to the source it was first seen on.
type SourceItem struct {
	Source  string
	Posting ClassifiedPosting
}

// MatchText returns the text surface used for keyword matching,
// title first, body appended when the adapter supplied one.
func (p Posting) MatchText() string {
	if p.Body == "" {
		return p.Title
	}
	return p.Title + "\n" + p.Body
}
