package app

import (
	"context"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/fetcher"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/normalize"
)

// Enricher fetches a listing's detail page and extracts its post body.
type Enricher struct {
	fetcher    *fetcher.Fetcher
	normalizer *normalize.Normalizer
}

func NewEnricher(f *fetcher.Fetcher, n *normalize.Normalizer) *Enricher {
	return &Enricher{fetcher: f, normalizer: n}
}

// Describe returns the detail-page text for a listing link. A missing
// post body is an empty string, not an error; only the fetch itself can
// fail.
func (e *Enricher) Describe(ctx context.Context, link string) (string, error) {
	resp, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	return e.normalizer.ExtractPostBody(string(resp.Body)), nil
}
