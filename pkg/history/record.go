package history

import (
	"strings"

	"github.com/umputun/tenderscope/pkg/domain"
)

// Entry is the minimal provenance kept for a reported posting.
type Entry struct {
	Source string `json:"source" db:"source"`
	Title  string `json:"title" db:"title"`
	URL    string `json:"url" db:"url"`
}

// Record maps identity keys to provenance for every posting reported in any
// prior run. Keys are never removed, postings are not forgotten.
type Record map[string]Entry

// Key derives the identity key for a posting: normalized url and title joined
// with "||", so that either field alone changing does not break identity.
// A posting with both fields empty cannot be keyed (ok=false); such postings
// are always treated as new and never persisted, a shared fallback key would
// collide with every other unkeyable posting and suppress unrelated postings.
func Key(p domain.Posting) (key string, ok bool) {
	u := strings.ToLower(strings.TrimSpace(p.URL))
	t := strings.ToLower(strings.TrimSpace(p.Title))
	if u == "" && t == "" {
		return "", false
	}
	return u + "||" + t, true
}

// Seen reports whether the key was already reported.
func (r Record) Seen(key string) bool {
	_, ok := r[key]
	return ok
}

// Mark inserts the key with its provenance, no-op if already present.
func (r Record) Mark(key string, e Entry) {
	if _, ok := r[key]; ok {
		return
	}
	r[key] = e
}

// Clone returns an independent copy, callers mutate the copy and keep the
// original for before/after comparison or abort.
func (r Record) Clone() Record {
	res := make(Record, len(r))
	for k, v := range r {
		res[k] = v
	}
	return res
}
