package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/umputun/tenderscope/pkg/domain"
)

// ReliefWebRSS reads ReliefWeb job listings from their RSS feed instead of
// scraping the HTML river, the feed is stable across their frontend redesigns.
// Item descriptions double as body text for matching.
type ReliefWebRSS struct {
	name    string
	url     string
	fetcher *Fetcher
}

// Name returns the configured source name.
func (s *ReliefWebRSS) Name() string { return s.name }

// Fetch retrieves and parses the feed, preserving feed order.
func (s *ReliefWebRSS) Fetch(ctx context.Context) ([]domain.Posting, error) {
	body, err := s.fetcher.Get(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch jobs feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse jobs feed: %w", err)
	}

	postings := make([]domain.Posting, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		p := domain.Posting{
			Source: s.name,
			Title:  title,
			URL:    item.Link,
		}
		if desc := strings.TrimSpace(item.Description); desc != "" {
			text := stripTags(desc)
			p.Body = text
			p.Summary = makeSummary(text)
		}
		postings = append(postings, p)
	}

	return postings, nil
}
