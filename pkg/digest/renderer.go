package digest

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/tenderscope/pkg/domain"
)

// Digest is the rendered report of one run, ready for delivery.
type Digest struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer formats aggregated new postings into a human-readable digest,
// plain text plus an HTML alternative for multipart mail. Items are grouped
// by source in the order the aggregator produced them.
type Renderer struct {
	subject   string
	sanitizer *bluemonday.Policy
}

// NewRenderer creates a renderer with the given mail subject.
func NewRenderer(subject string) *Renderer {
	return &Renderer{
		subject:   subject,
		sanitizer: bluemonday.StrictPolicy(), // summaries come from scraped pages, strip all markup
	}
}

const emptyStateMessage = "No new matching tenders or consultancies found in this run."

// Render produces both representations of the digest. An empty run renders
// an explicit no-new-items message, never an empty document.
func (r *Renderer) Render(items []domain.SourceItem) Digest {
	return Digest{
		Subject: r.subject,
		Text:    r.renderText(items),
		HTML:    r.renderHTML(items),
	}
}

func (r *Renderer) renderText(items []domain.SourceItem) string {
	if len(items) == 0 {
		return emptyStateMessage + "\n"
	}

	var b strings.Builder
	b.WriteString("New tender and consultancy opportunities\n\n")

	currentSource := ""
	for _, it := range items {
		if it.Source != currentSource {
			if currentSource != "" {
				b.WriteString("\n")
			}
			b.WriteString(it.Source + "\n")
			b.WriteString(strings.Repeat("-", len(it.Source)) + "\n")
			currentSource = it.Source
		}

		p := it.Posting
		b.WriteString("* " + p.Title + "\n")
		if p.URL != "" {
			b.WriteString("  " + p.URL + "\n")
		}
		if p.Deadline != "" {
			b.WriteString("  deadline: " + p.Deadline + "\n")
		}
		if len(p.Tier1Hits) > 0 {
			b.WriteString("  matched: " + strings.Join(p.Tier1Hits, ", ") + "\n")
		}
		if len(p.Tier2Hits) > 0 {
			b.WriteString("  also: " + strings.Join(p.Tier2Hits, ", ") + "\n")
		}
		if p.Summary != "" {
			b.WriteString("  " + p.Summary + "\n")
		}
	}

	return b.String()
}

func (r *Renderer) renderHTML(items []domain.SourceItem) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")

	if len(items) == 0 {
		b.WriteString("<p>" + emptyStateMessage + "</p>\n</body></html>\n")
		return b.String()
	}

	b.WriteString("<h2>New tender and consultancy opportunities</h2>\n")

	currentSource := ""
	for _, it := range items {
		if it.Source != currentSource {
			if currentSource != "" {
				b.WriteString("</ul>\n")
			}
			b.WriteString("<h3>" + html.EscapeString(it.Source) + "</h3>\n<ul>\n")
			currentSource = it.Source
		}

		p := it.Posting
		b.WriteString("<li>")
		if p.URL != "" {
			// scraped URLs go into an attribute, escape them like any other field
			b.WriteString(`<a href="` + html.EscapeString(p.URL) + `">` + html.EscapeString(p.Title) + "</a>")
		} else {
			b.WriteString("<b>" + html.EscapeString(p.Title) + "</b>")
		}
		if p.Deadline != "" {
			b.WriteString("<br/><i>deadline: " + html.EscapeString(p.Deadline) + "</i>")
		}
		if len(p.Tier1Hits) > 0 {
			b.WriteString("<br/>matched: " + html.EscapeString(strings.Join(p.Tier1Hits, ", ")))
		}
		if len(p.Tier2Hits) > 0 {
			b.WriteString("<br/>also: " + html.EscapeString(strings.Join(p.Tier2Hits, ", ")))
		}
		if p.Summary != "" {
			b.WriteString("<br/>" + r.sanitizer.Sanitize(p.Summary))
		}
		b.WriteString("</li>\n")
	}

	b.WriteString("</ul>\n</body></html>\n")
	return b.String()
}
