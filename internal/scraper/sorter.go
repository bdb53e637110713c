package scraper

import (
	"fmt"
	"sort"
	"strings"
)

// Bucket label for listings whose date cell was empty.
const UnknownDateLabel = "未知日期"

// Sorter orders listings by posting date and produces aggregate counts.
type Sorter struct {
	parser *DateParser
}

func NewSorter(parser *DateParser) *Sorter {
	return &Sorter{parser: parser}
}

// SortByDateDesc returns the listings newest-first. Listings without a
// parseable date are appended after the dated ones, both partitions
// keeping their original relative order.
func (s *Sorter) SortByDateDesc(listings []*Listing) []*Listing {
	type dated struct {
		listing *Listing
		date    int64
	}

	var withDate []dated
	var withoutDate []*Listing

	for _, l := range listings {
		t, err := s.parser.Parse(l.DateRaw)
		if err != nil {
			withoutDate = append(withoutDate, l)
			continue
		}
		withDate = append(withDate, dated{listing: l, date: t.Unix()})
	}

	sort.SliceStable(withDate, func(i, j int) bool {
		return withDate[i].date > withDate[j].date
	})

	result := make([]*Listing, 0, len(listings))
	for _, d := range withDate {
		result = append(result, d.listing)
	}
	return append(result, withoutDate...)
}

type Bucket struct {
	Key   string
	Count int
}

// Summary aggregates one run's new listings by date and by first
// matching keyword.
type Summary struct {
	Total          int
	DateBuckets    []Bucket
	KeywordBuckets []Bucket
}

// Summarize counts listings per formatted date (raw string when the date
// is unparseable, 未知日期 when empty) and per first matching keyword.
// Date buckets are listed ascending with the unknown bucket last.
func (s *Sorter) Summarize(listings []*Listing, searchTerms []string) *Summary {
	dateCounts := make(map[string]int)
	keywordCounts := make(map[string]int)

	for _, l := range listings {
		key := UnknownDateLabel
		if l.DateRaw != "" {
			if t, err := s.parser.Parse(l.DateRaw); err == nil {
				key = FormatDate(t)
			} else {
				key = l.DateRaw
			}
		}
		dateCounts[key]++

		if term, ok := FirstMatch(l.Title, searchTerms); ok {
			keywordCounts[term]++
		}
	}

	summary := &Summary{Total: len(listings)}

	dateKeys := make([]string, 0, len(dateCounts))
	for key := range dateCounts {
		dateKeys = append(dateKeys, key)
	}
	sort.Slice(dateKeys, func(i, j int) bool {
		// Unknown bucket always sorts last.
		if (dateKeys[i] == UnknownDateLabel) != (dateKeys[j] == UnknownDateLabel) {
			return dateKeys[j] == UnknownDateLabel
		}
		return dateKeys[i] < dateKeys[j]
	})
	for _, key := range dateKeys {
		summary.DateBuckets = append(summary.DateBuckets, Bucket{Key: key, Count: dateCounts[key]})
	}

	// Keyword buckets follow the configured term order, first match wins.
	for _, term := range searchTerms {
		if count := keywordCounts[term]; count > 0 {
			summary.KeywordBuckets = append(summary.KeywordBuckets, Bucket{Key: term, Count: count})
		}
	}

	return summary
}

// Render produces the statistics block embedded in notifications and logs.
func (sum *Summary) Render() string {
	var b strings.Builder

	b.WriteString("\n📊 工作统计总结:\n")
	fmt.Fprintf(&b, "总工作数量: %d 个\n", sum.Total)
	b.WriteString("按日期分布:\n")

	if len(sum.DateBuckets) == 0 {
		b.WriteString("  • 暂无日期信息\n")
	} else {
		for _, bucket := range sum.DateBuckets {
			fmt.Fprintf(&b, "  • %s: %d 个工作\n", bucket.Key, bucket.Count)
		}
	}

	if len(sum.KeywordBuckets) > 0 {
		b.WriteString("按关键词分布:\n")
		for _, bucket := range sum.KeywordBuckets {
			fmt.Fprintf(&b, "  • %s: %d 个\n", bucket.Key, bucket.Count)
		}
	}

	b.WriteString("\n")
	return b.String()
}
