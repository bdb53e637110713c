package scraper

import (
	"strings"
	"testing"
)

func TestSortByDateDesc(t *testing.T) {
	sorter := NewSorter(NewDateParser())

	listings := []*Listing{
		{Title: "a", DateRaw: "看不懂的日期"},
		{Title: "b", DateRaw: "2024-01-01"},
		{Title: "c", DateRaw: "2024-03-01"},
	}

	sorted := sorter.SortByDateDesc(listings)

	wantOrder := []string{"c", "b", "a"}
	for i, want := range wantOrder {
		if sorted[i].Title != want {
			t.Fatalf("position %d: got %q, want %q", i, sorted[i].Title, want)
		}
	}

	// Input slice order must not decide the output beyond tie-breaking.
	if len(sorted) != len(listings) {
		t.Fatalf("got %d listings, want %d", len(sorted), len(listings))
	}
}

func TestSortByDateDescStableTies(t *testing.T) {
	sorter := NewSorter(NewDateParser())

	listings := []*Listing{
		{Title: "first", DateRaw: "2/7/2024"},
		{Title: "second", DateRaw: "2024-02-07"},
		{Title: "unparseable-1", DateRaw: ""},
		{Title: "unparseable-2", DateRaw: "someday"},
	}

	sorted := sorter.SortByDateDesc(listings)

	wantOrder := []string{"first", "second", "unparseable-1", "unparseable-2"}
	for i, want := range wantOrder {
		if sorted[i].Title != want {
			t.Fatalf("position %d: got %q, want %q", i, sorted[i].Title, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	sorter := NewSorter(NewDateParser())

	listings := []*Listing{
		{Title: "美甲店请人", DateRaw: "2024-03-01"},
		{Title: "美甲学徒", DateRaw: "3/1/2024"},
		{Title: "招小工", DateRaw: "2024-01-15"},
		{Title: "美甲招聘", DateRaw: "昨天"},
		{Title: "指甲店招人", DateRaw: ""},
	}

	summary := sorter.Summarize(listings, []string{"美甲", "小工", "指甲"})

	if summary.Total != 5 {
		t.Errorf("Total = %d, want 5", summary.Total)
	}

	wantBuckets := []Bucket{
		{Key: "2024-01-15", Count: 1},
		{Key: "2024-03-01", Count: 2},
		{Key: "昨天", Count: 1},
		{Key: UnknownDateLabel, Count: 1},
	}
	if len(summary.DateBuckets) != len(wantBuckets) {
		t.Fatalf("got %d date buckets, want %d: %+v", len(summary.DateBuckets), len(wantBuckets), summary.DateBuckets)
	}
	for i, want := range wantBuckets {
		if summary.DateBuckets[i] != want {
			t.Errorf("date bucket %d = %+v, want %+v", i, summary.DateBuckets[i], want)
		}
	}

	// First matching keyword wins; no multi-counting.
	wantKeywords := []Bucket{
		{Key: "美甲", Count: 3},
		{Key: "小工", Count: 1},
		{Key: "指甲", Count: 1},
	}
	if len(summary.KeywordBuckets) != len(wantKeywords) {
		t.Fatalf("got %d keyword buckets, want %d: %+v", len(summary.KeywordBuckets), len(wantKeywords), summary.KeywordBuckets)
	}
	for i, want := range wantKeywords {
		if summary.KeywordBuckets[i] != want {
			t.Errorf("keyword bucket %d = %+v, want %+v", i, summary.KeywordBuckets[i], want)
		}
	}
}

func TestSummaryRender(t *testing.T) {
	summary := &Summary{
		Total: 2,
		DateBuckets: []Bucket{
			{Key: "2024-03-01", Count: 2},
		},
	}

	text := summary.Render()
	for _, want := range []string{"总工作数量: 2 个", "2024-03-01: 2 个工作"} {
		if !strings.Contains(text, want) {
			t.Errorf("Render() missing %q in:\n%s", want, text)
		}
	}
}
