package source

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/tenderscope/pkg/domain"
)

// Adapter produces the complete candidate list of one site for one run.
// Implementations are independent, each one fallible on its own: an error
// means zero candidates from this source, never a partial list.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Posting, error)
}

// BodyExtractor pulls readable text from a posting's detail page.
// Optional, adapters fall back to title-only matching without one.
type BodyExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Spec describes one configured source.
type Spec struct {
	Name        string
	Type        string
	URL         string
	DetailPages bool
}

// source type identifiers accepted in config
const (
	TypeUNDPConsultancies = "undp-consultancies"
	TypeUNDPProcurement   = "undp-procurement"
	TypeWorldBank         = "worldbank"
	TypeReliefWebRSS      = "reliefweb-rss"
)

// DefaultSpecs returns the built-in source set, used when config does not
// override the sources list. Order is significant, it drives digest sections.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "UNDP Consultancies", Type: TypeUNDPConsultancies, URL: "https://jobs.undp.org/cj_view_consultancies.cfm"},
		{Name: "UNDP Procurement Notices", Type: TypeUNDPProcurement, URL: "https://procurement-notices.undp.org/"},
		{Name: "ReliefWeb Jobs", Type: TypeReliefWebRSS, URL: "https://reliefweb.int/jobs/rss.xml?search=marine"},
		{Name: "World Bank eProcure", Type: TypeWorldBank, URL: "https://wbgeprocure-rfxnow.worldbank.org/rfxnow/public/advertisement/index.html"},
	}
}

// New creates an adapter for the given spec.
func New(spec Spec, fetcher *Fetcher, extractor BodyExtractor) (Adapter, error) {
	if !spec.DetailPages {
		extractor = nil
	}

	switch spec.Type {
	case TypeUNDPConsultancies:
		return &UNDPConsultancies{name: spec.Name, url: spec.URL, fetcher: fetcher, extractor: extractor}, nil
	case TypeUNDPProcurement:
		return &UNDPProcurement{name: spec.Name, url: spec.URL, fetcher: fetcher, extractor: extractor}, nil
	case TypeWorldBank:
		return &WorldBank{name: spec.Name, url: spec.URL, fetcher: fetcher, extractor: extractor}, nil
	case TypeReliefWebRSS:
		return &ReliefWebRSS{name: spec.Name, url: spec.URL, fetcher: fetcher}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", spec.Type)
	}
}

// resolveURL makes href absolute against the listing page URL.
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	hrefURL, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(hrefURL).String()
}

// summary length cap for digest display
const summaryLimit = 400

// enrichBody fetches detail-page text for a posting, best effort. Extraction
// failure degrades to title-only matching and is not an adapter failure.
func enrichBody(ctx context.Context, extractor BodyExtractor, p *domain.Posting) {
	if extractor == nil || p.URL == "" {
		return
	}

	body, err := extractor.Extract(ctx, p.URL)
	if err != nil {
		lgr.Printf("[DEBUG] no detail text for %s: %v", p.URL, err)
		return
	}

	p.Body = body
	p.Summary = makeSummary(body)
}

// makeSummary collapses whitespace and truncates to the display limit,
// keeping the cut on a rune boundary.
func makeSummary(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if len(collapsed) > summaryLimit {
		cut := summaryLimit
		for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
			cut--
		}
		collapsed = collapsed[:cut]
	}
	return strings.TrimSpace(collapsed)
}

var stripPolicy = bluemonday.StrictPolicy()

// stripTags reduces embedded feed HTML to plain text for matching and display.
func stripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}
