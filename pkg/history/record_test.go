package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tenderscope/pkg/domain"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name    string
		posting domain.Posting
		key     string
		ok      bool
	}{
		{
			name:    "url and title",
			posting: domain.Posting{Title: "Ocean Consultant", URL: "https://x/1"},
			key:     "https://x/1||ocean consultant",
			ok:      true,
		},
		{
			name:    "normalization of case and whitespace",
			posting: domain.Posting{Title: "  Ocean Consultant ", URL: " HTTPS://X/1 "},
			key:     "https://x/1||ocean consultant",
			ok:      true,
		},
		{
			name:    "title only",
			posting: domain.Posting{Title: "Ocean Consultant"},
			key:     "||ocean consultant",
			ok:      true,
		},
		{
			name:    "url only",
			posting: domain.Posting{URL: "https://x/1"},
			key:     "https://x/1||",
			ok:      true,
		},
		{
			name:    "both empty is unkeyable",
			posting: domain.Posting{},
			ok:      false,
		},
		{
			name:    "whitespace only is unkeyable",
			posting: domain.Posting{Title: "   ", URL: " "},
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := Key(tt.posting)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestKey_Stability(t *testing.T) {
	p1 := domain.Posting{Title: "Marine Advisor", URL: "https://example.com/job/1"}
	p2 := domain.Posting{Title: "MARINE ADVISOR  ", URL: "  https://EXAMPLE.com/job/1"}

	k1, ok1 := Key(p1)
	k2, ok2 := Key(p2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, k1, k2)
}

func TestRecord_MarkAndSeen(t *testing.T) {
	rec := Record{}
	assert.False(t, rec.Seen("k1"))

	rec.Mark("k1", Entry{Source: "A", Title: "t", URL: "u"})
	assert.True(t, rec.Seen("k1"))
	assert.Equal(t, "A", rec["k1"].Source)

	// idempotent, first provenance wins
	rec.Mark("k1", Entry{Source: "B"})
	assert.Equal(t, "A", rec["k1"].Source)
}

func TestRecord_Clone(t *testing.T) {
	orig := Record{"k1": {Source: "A"}}
	clone := orig.Clone()

	clone.Mark("k2", Entry{Source: "B"})
	assert.Len(t, clone, 2)
	assert.Len(t, orig, 1)
	assert.False(t, orig.Seen("k2"))
}
