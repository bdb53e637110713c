package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/config"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/dedup"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/fetcher"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/normalize"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/scraper"
)

type fakeNotifier struct {
	mu       sync.Mutex
	err      error
	subjects []string
	bodies   []string
}

func (n *fakeNotifier) Send(_ context.Context, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *fakeNotifier) sent() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subjects)
}

func topicRow(title, href string) string {
	return fmt.Sprintf(`
	<tr class="bg_small_yellow">
		<td class="row1"><a href="%s">%s</a></td>
		<td class="row3"><a href="/profile/1.page">王老板</a></td>
		<td class="row3" nowrap="nowrap"><span class="postdetails">2/7/2024</span></td>
	</tr>`, href, title)
}

// forumServer serves two listing pages for forum 56 and a detail page per
// topic. The second page repeats one topic from the first, the way a
// bumped thread drifts across page boundaries between runs.
func forumServer(t *testing.T) *httptest.Server {
	t.Helper()

	page1 := "<table>" +
		topicRow("美甲师招聘大工", "/c/forums/viewtopic/1.page") +
		topicRow("美甲店请小工", "/c/forums/viewtopic/2.page") +
		topicRow("法拉盛美甲学徒", "/c/forums/viewtopic/3.page") +
		topicRow("餐厅企台招聘", "/c/forums/viewtopic/99.page") +
		"</table>"
	page2 := "<table>" +
		topicRow("美甲店请小工", "/c/forums/viewtopic/2.page") +
		topicRow("美甲招聘包吃住", "/c/forums/viewtopic/4.page") +
		"</table>"

	mux := http.NewServeMux()
	mux.HandleFunc("/c/forums/show/56.page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page1))
	})
	mux.HandleFunc("/c/forums/show/90/56.page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page2))
	})
	mux.HandleFunc("/c/forums/viewtopic/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `<div class="postbody">详情 %s</div>`, r.URL.Path)
	})

	return httptest.NewServer(mux)
}

func testPipelineConfig(baseOrigin string) *config.Config {
	return &config.Config{
		BaseOrigin: baseOrigin,
		HTTP: config.HTTPConfig{
			UserAgent:      "test-agent/1.0",
			AcceptLanguage: "zh-CN",
			TotalTimeoutMS: 5000,
			MaxRetries:     0,
		},
		RateLimit: config.RateLimitConfig{
			MaxConcurrentPerHost: 2,
			RPM:                  1000,
		},
		PolitenessDelayMS: 1,
		Selectors: config.SelectorsConfig{
			Row:        "tr.bg_small_yellow",
			TitleLink:  "a[href]",
			AuthorCell: "td.row3",
			DateCell:   "td.row3[nowrap]",
			DateSpan:   "span.postdetails",
			PostBody:   "div.postbody",
		},
		Normalize: config.NormalizeConfig{
			TrimNBSP:        true,
			CollapseSpaces:  true,
			MaxPreviewChars: 200,
		},
	}
}

func testDomain(stateFile string) config.DomainConfig {
	return config.DomainConfig{
		Name:          "nail_jobs",
		Label:         "美甲",
		SubjectPrefix: "美甲招聘",
		ForumID:       56,
		Pages:         2,
		PageSize:      90,
		Keywords:      []string{"美甲", "指甲", "nail"},
		StateFile:     stateFile,
		IntervalS:     3600,
	}
}

func newTestPipeline(cfg *config.Config, domain config.DomainConfig, notifier Notifier) *Pipeline {
	logger := observability.NewTestLogger()
	f := fetcher.NewFetcher(cfg, logger)
	normalizer := normalize.NewNormalizer(cfg.Normalize, cfg.Selectors.PostBody)
	parser := scraper.NewDateParser()

	return NewPipeline(
		cfg,
		domain,
		logger,
		f,
		scraper.NewExtractor(cfg.Selectors, cfg.BaseOrigin),
		parser,
		scraper.NewSorter(parser),
		dedup.NewFileStore(domain.StateFile, logger),
		NewEnricher(f, normalizer),
		notifier,
		nil,
	)
}

func TestRunOnceNotifiesAndPersists(t *testing.T) {
	server := forumServer(t)
	defer server.Close()

	cfg := testPipelineConfig(server.URL)
	domain := testDomain(filepath.Join(t.TempDir(), "sent_nail_ids.json"))
	notifier := &fakeNotifier{}

	p := newTestPipeline(cfg, domain, notifier)
	stats := p.RunOnce(context.Background())

	if stats.PagesFetched != 2 || stats.PagesFailed != 0 {
		t.Errorf("pages fetched/failed = %d/%d, want 2/0", stats.PagesFetched, stats.PagesFailed)
	}
	// Five keyword-matching rows across both pages; one is the same topic
	// twice, so four are new. The restaurant row never matches.
	if stats.Candidates != 5 {
		t.Errorf("candidates = %d, want 5", stats.Candidates)
	}
	if stats.NewListings != 4 {
		t.Errorf("new listings = %d, want 4", stats.NewListings)
	}
	if !stats.Notified {
		t.Error("expected a notification")
	}
	if notifier.sent() != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.sent())
	}
	if want := "【美甲招聘】美甲、指甲、nail等招聘信息通知"; notifier.subjects[0] != want {
		t.Errorf("subject = %q, want %q", notifier.subjects[0], want)
	}
	if !strings.Contains(notifier.bodies[0], "详情 /c/forums/viewtopic/1.page") {
		t.Errorf("body missing enriched detail text:\n%s", notifier.bodies[0])
	}
	if known := p.Known(); len(known) != 4 {
		t.Errorf("known set has %d ids, want 4", len(known))
	}
}

func TestRunOnceSecondRunIsQuiet(t *testing.T) {
	server := forumServer(t)
	defer server.Close()

	cfg := testPipelineConfig(server.URL)
	domain := testDomain(filepath.Join(t.TempDir(), "sent_nail_ids.json"))

	first := &fakeNotifier{}
	newTestPipeline(cfg, domain, first).RunOnce(context.Background())
	if first.sent() != 1 {
		t.Fatalf("first run sent %d notifications, want 1", first.sent())
	}

	// A fresh pipeline reloads the state file, so nothing is new.
	second := &fakeNotifier{}
	stats := newTestPipeline(cfg, domain, second).RunOnce(context.Background())

	if stats.NewListings != 0 {
		t.Errorf("second run found %d new listings, want 0", stats.NewListings)
	}
	if stats.Notified || second.sent() != 0 {
		t.Errorf("second run must not notify, sent %d", second.sent())
	}
}

func TestRunOncePersistsDespiteNotificationFailure(t *testing.T) {
	server := forumServer(t)
	defer server.Close()

	cfg := testPipelineConfig(server.URL)
	domain := testDomain(filepath.Join(t.TempDir(), "sent_nail_ids.json"))

	failing := &fakeNotifier{err: errors.New("smtp unreachable")}
	stats := newTestPipeline(cfg, domain, failing).RunOnce(context.Background())

	if stats.NewListings != 4 {
		t.Fatalf("new listings = %d, want 4", stats.NewListings)
	}
	if stats.Notified {
		t.Error("Notified should be false after delivery failure")
	}

	// The listings must not be reported again on the next run.
	recovered := &fakeNotifier{}
	again := newTestPipeline(cfg, domain, recovered).RunOnce(context.Background())
	if again.NewListings != 0 || recovered.sent() != 0 {
		t.Errorf("listings re-reported after delivery failure: new=%d sent=%d",
			again.NewListings, recovered.sent())
	}
}

func TestRunOnceFailedPageIsSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/c/forums/show/56.page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<table>" + topicRow("美甲师招聘", "/c/forums/viewtopic/1.page") + "</table>"))
	})
	mux.HandleFunc("/c/forums/show/90/56.page", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/c/forums/viewtopic/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="postbody">详情</div>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testPipelineConfig(server.URL)
	domain := testDomain(filepath.Join(t.TempDir(), "sent_nail_ids.json"))
	notifier := &fakeNotifier{}

	stats := newTestPipeline(cfg, domain, notifier).RunOnce(context.Background())

	if stats.PagesFetched != 1 || stats.PagesFailed != 1 {
		t.Errorf("pages fetched/failed = %d/%d, want 1/1", stats.PagesFetched, stats.PagesFailed)
	}
	if stats.NewListings != 1 || !stats.Notified {
		t.Errorf("surviving page should still notify: new=%d notified=%v",
			stats.NewListings, stats.Notified)
	}
}

func TestRunOnceEnrichmentFailureUsesPlaceholder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/c/forums/show/56.page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<table>" + topicRow("美甲师招聘", "/c/forums/viewtopic/1.page") + "</table>"))
	})
	mux.HandleFunc("/c/forums/show/90/56.page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<table></table>"))
	})
	mux.HandleFunc("/c/forums/viewtopic/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testPipelineConfig(server.URL)
	domain := testDomain(filepath.Join(t.TempDir(), "sent_nail_ids.json"))
	notifier := &fakeNotifier{}

	stats := newTestPipeline(cfg, domain, notifier).RunOnce(context.Background())

	if stats.NewListings != 1 || notifier.sent() != 1 {
		t.Fatalf("new=%d sent=%d, want 1/1", stats.NewListings, notifier.sent())
	}
	if !strings.Contains(notifier.bodies[0], descriptionUnavailable) {
		t.Errorf("body missing placeholder for failed detail fetch:\n%s", notifier.bodies[0])
	}
}
