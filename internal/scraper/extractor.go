package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
)

// Shape of a numeric date inside a cell, used as a last-resort fallback
// when the designated date cell is empty.
var dateNumberRe = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

// Extractor maps listing-page markup to candidate Listings. It is pure:
// no network, no file I/O. A malformed row yields no record, never an
// error.
type Extractor struct {
	selectors  config.SelectorsConfig
	baseOrigin string
}

func NewExtractor(selectors config.SelectorsConfig, baseOrigin string) *Extractor {
	return &Extractor{
		selectors:  selectors,
		baseOrigin: strings.TrimRight(baseOrigin, "/"),
	}
}

// ParseListing scans the page for topic rows and returns the ones whose
// title contains at least one of the search terms, in page order.
func (e *Extractor) ParseListing(html string, searchTerms []string) ([]*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var listings []*Listing

	doc.Find(e.selectors.Row).Each(func(_ int, row *goquery.Selection) {
		titleLink := row.Find(e.selectors.TitleLink).First()
		if titleLink.Length() == 0 {
			return
		}

		href, ok := titleLink.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		title := strings.TrimSpace(titleLink.Text())

		if _, ok := FirstMatch(title, searchTerms); !ok {
			return
		}

		listings = append(listings, &Listing{
			Title:   title,
			Link:    e.resolveLink(strings.TrimSpace(href)),
			Author:  e.extractAuthor(row),
			DateRaw: e.extractDate(row),
		})
	})

	return listings, nil
}

// FirstMatch returns the first search term contained in the title.
// Matching is plain substring containment, OR across all terms.
func FirstMatch(title string, searchTerms []string) (string, bool) {
	for _, term := range searchTerms {
		if term == "" {
			continue
		}
		if strings.Contains(title, term) {
			return term, true
		}
	}
	return "", false
}

// resolveLink joins a relative href against the base origin. Already
// absolute links pass through untouched.
func (e *Extractor) resolveLink(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return e.baseOrigin + href
	}
	return e.baseOrigin + "/" + href
}

// extractAuthor reads the author cell, preferring an inner anchor's text
// over the cell's own text. Missing cell yields an empty string.
func (e *Extractor) extractAuthor(row *goquery.Selection) string {
	cell := row.Find(e.selectors.AuthorCell).First()
	if cell.Length() == 0 {
		return ""
	}
	if anchor := cell.Find("a").First(); anchor.Length() > 0 {
		return strings.TrimSpace(anchor.Text())
	}
	return strings.TrimSpace(cell.Text())
}

// extractDate looks in the no-wrap cell for a date-styled span, then the
// cell's own text, then falls back to scanning every cell in the row for
// something shaped like a date.
func (e *Extractor) extractDate(row *goquery.Selection) string {
	dateRaw := ""
	cell := row.Find(e.selectors.DateCell).First()
	if cell.Length() > 0 {
		if span := cell.Find(e.selectors.DateSpan).First(); span.Length() > 0 {
			dateRaw = strings.TrimSpace(span.Text())
		} else {
			dateRaw = strings.TrimSpace(cell.Text())
		}
	}
	if dateRaw == "" {
		row.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
			text := strings.TrimSpace(td.Text())
			if dateNumberRe.MatchString(text) {
				dateRaw = text
				return false
			}
			return true
		})
	}
	return dateRaw
}
