package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
)

var multiSpaceRe = regexp.MustCompile(`[ \t]+`)

// Normalizer extracts and cleans the free-text body of a detail page.
type Normalizer struct {
	cfg              config.NormalizeConfig
	postBodySelector string
}

func NewNormalizer(cfg config.NormalizeConfig, postBodySelector string) *Normalizer {
	return &Normalizer{
		cfg:              cfg,
		postBodySelector: postBodySelector,
	}
}

// ExtractPostBody returns the text of the post-body container with line
// breaks preserved as newlines, trimmed. Missing container or unparseable
// markup yields an empty string.
func (n *Normalizer) ExtractPostBody(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	body := doc.Find(n.postBodySelector).First()
	if body.Length() == 0 {
		return ""
	}

	body.Find("script, style").Remove()

	var parts []string
	collectText(body, &parts)

	for i, part := range parts {
		parts[i] = n.cleanPart(part)
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// collectText gathers trimmed text nodes in document order, one part per
// node, so element boundaries become line breaks.
func collectText(s *goquery.Selection, parts *[]string) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			if text := strings.TrimSpace(child.Text()); text != "" {
				*parts = append(*parts, text)
			}
			return
		}
		collectText(child, parts)
	})
}

func (n *Normalizer) cleanPart(text string) string {
	if n.cfg.TrimNBSP {
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}
	if n.cfg.CollapseSpaces {
		text = multiSpaceRe.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

// TruncatePreview shortens text to the configured preview length for log
// output, cutting at a space when possible.
func (n *Normalizer) TruncatePreview(text string) string {
	if n.cfg.MaxPreviewChars <= 0 || len(text) <= n.cfg.MaxPreviewChars {
		return text
	}

	truncated := text[:n.cfg.MaxPreviewChars]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		return text[:lastSpace] + "…"
	}
	return truncated + "…"
}
