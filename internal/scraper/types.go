package scraper

// Listing is one forum posting extracted from a listing page. Link is
// always absolute. Description is filled in later by enrichment and is
// empty until then.
type Listing struct {
	Title       string
	Link        string
	Author      string
	DateRaw     string
	Description string
}
