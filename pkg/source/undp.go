package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/umputun/tenderscope/pkg/domain"
)

// UNDPConsultancies scrapes the UNDP consultancy listing, a plain HTML table
// with one row per opening and the title link in the first anchor.
type UNDPConsultancies struct {
	name      string
	url       string
	fetcher   *Fetcher
	extractor BodyExtractor
}

// Name returns the configured source name.
func (s *UNDPConsultancies) Name() string { return s.name }

// Fetch retrieves the listing page and extracts candidate postings in page order.
func (s *UNDPConsultancies) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := s.fetcher.Document(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch consultancies listing: %w", err)
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

// UNDPProcurement scrapes the UNDP procurement-notices front page, picking up
// links to individual notice and negotiation pages.
type UNDPProcurement struct {
	name      string
	url       string
	fetcher   *Fetcher
	extractor BodyExtractor
}

// Name returns the configured source name.
func (s *UNDPProcurement) Name() string { return s.name }

// notice link markers on the procurement site
var procurementLinkMarkers = []string{"view_notice", "view_negotiation", "view_procurement"}

// Fetch retrieves the front page and extracts notice links in page order.
func (s *UNDPProcurement) Fetch(ctx context.Context) ([]domain.Posting, error) {
	doc, err := s.fetcher.Document(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch procurement notices: %w", err)
	}

	var postings []domain.Posting
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !isProcurementLink(href) {
			return
		}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		p := domain.Posting{
			Source: s.name,
			Title:  title,
			URL:    resolveURL(s.url, href),
		}
		enrichBody(ctx, s.extractor, &p)
		postings = append(postings, p)
	})

	return postings, nil
}

func isProcurementLink(href string) bool {
	for _, marker := range procurementLinkMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

// deadlineWords mark table cells that carry a closing date
var deadlineWords = []string{"deadline", "closing", "until", "due date"}

// deadlineFromCells scans row cells for a closing-date marker, best effort.
func deadlineFromCells(row *goquery.Selection) string {
	deadline := ""
	row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.TrimSpace(cell.Text())
		lowered := strings.ToLower(text)
		for _, word := range deadlineWords {
			if strings.Contains(lowered, word) {
				deadline = text
				return false
			}
		}
		return true
	})
	return deadline
}
