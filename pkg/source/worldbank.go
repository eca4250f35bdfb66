package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/umputun/tenderscope/pkg/domain"
)

// WorldBank scrapes the World Bank eProcure advertisement listing. The page
// is an HTML table, rows rendered by JavaScript are invisible to us, so the
// result may under-report. Best effort by design.
type WorldBank struct {
	name      string
	url       string
	fetcher   *Fetcher
	extractor BodyExtractor
}

// Name returns the configured source name.
func (s *WorldBank) Name() string { return s.name }

// Fetch retrieves the advertisement page and extracts visible table rows in page order.
func (s *WorldBank) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := s.fetcher.Document(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch advertisement listing: %w", err)
	}

	var postings []domain.Posting
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}

		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}

		p := domain.Posting{
			Source:   s.name,
			Title:    title,
			URL:      resolveURL(s.url, href),
			Deadline: deadlineFromCells(row),
		}
		enrichBody(ctx, s.extractor, &p)
		postings = append(postings, p)
	})

	return postings, nil
}
