package checksum

import (
	"crypto/sha256"
	"fmt"
	"time"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateContentHash hashes an archived listing's content.
// Formula: SHA256(link|title|description|date_iso)
func (g *Generator) GenerateContentHash(link, title, description string, date time.Time) string {
	dateISO := date.UTC().Format("2006-01-02")

	content := fmt.Sprintf("%s|%s|%s|%s", link, title, description, dateISO)

	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}

// VerifyContentHash checks that stored content still matches its hash.
func (g *Generator) VerifyContentHash(expectedHash, link, title, description string, date time.Time) bool {
	return g.GenerateContentHash(link, title, description, date) == expectedHash
}
