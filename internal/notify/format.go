package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/scraper"
)

const blockSeparator = "──────────────────────────────────────────────────"

// BuildEmail renders the notification subject and plaintext body for one
// run's new listings. The subject embeds up to three search terms; the
// body embeds the summary followed by one block per listing.
func BuildEmail(subjectPrefix, label string, listings []*scraper.Listing, searchTerms []string, summary *scraper.Summary, now time.Time) (subject, body string) {
	shortTerms := searchTerms
	if len(shortTerms) > 3 {
		shortTerms = shortTerms[:3]
	}
	subject = fmt.Sprintf("【%s】%s等招聘信息通知", subjectPrefix, strings.Join(shortTerms, "、"))

	var b strings.Builder
	fmt.Fprintf(&b, "你好！\n\n我们发现以下新的%s招聘信息（匹配关键词：%s）：\n", label, strings.Join(searchTerms, ", "))
	b.WriteString(summary.Render())

	for idx, listing := range listings {
		fmt.Fprintf(&b, "%d. 📅 发布日期: %s\n", idx+1, listing.DateRaw)
		fmt.Fprintf(&b, "   📝 标题: %s\n", listing.Title)
		fmt.Fprintf(&b, "   👤 发帖人: %s\n", listing.Author)
		fmt.Fprintf(&b, "   🔗 链接: %s\n", listing.Link)
		if listing.Description != "" {
			fmt.Fprintf(&b, "   📄 详情: %s\n", listing.Description)
		}
		b.WriteString("   " + blockSeparator + "\n")
	}

	b.WriteString("\n请尽快查看！\n\n")
	fmt.Fprintf(&b, "通知时间: %s", now.Format("2006-01-02 15:04:05"))

	return subject, b.String()
}
