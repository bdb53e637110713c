package storage

import (
	"context"
	"time"
)

// NotifiedListing is one notified posting as archived for history. The
// JSON state file only keeps identities; the archive keeps the content.
type NotifiedListing struct {
	Domain      string
	Title       string
	Link        string
	Author      string
	DateRaw     string
	PostedAt    time.Time // zero when the raw date was unparseable
	Description string
	CheckSum    string // SHA256 of the listing content
	NotifiedAt  time.Time
}

// Repository archives notified listings.
type Repository interface {
	// SaveNotified inserts or refreshes a listing, returns whether a new
	// row was created.
	SaveNotified(ctx context.Context, listing *NotifiedListing) (isNew bool, err error)

	// CountByDomain returns how many listings were archived for a domain.
	CountByDomain(ctx context.Context, domain string) (int, error)

	Close() error
}
