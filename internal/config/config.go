package config

import (
	"fmt"
	"time"
)

type Config struct {
	BaseOrigin        string              `yaml:"base_origin"`
	HTTP              HTTPConfig          `yaml:"http"`
	RateLimit         RateLimitConfig     `yaml:"rate_limit"`
	PolitenessDelayMS int                 `yaml:"politeness_delay_ms"`
	Selectors         SelectorsConfig     `yaml:"selectors"`
	Normalize         NormalizeConfig     `yaml:"normalize"`
	Email             EmailConfig         `yaml:"email"`
	Archive           ArchiveConfig       `yaml:"archive"`
	Scheduler         SchedulerConfig     `yaml:"scheduler"`
	Observability     ObservabilityConfig `yaml:"observability"`
	Domains           []DomainConfig      `yaml:"domains"`
}

type HTTPConfig struct {
	UserAgent      string `yaml:"user_agent"`
	AcceptLanguage string `yaml:"accept_language"`
	TotalTimeoutMS int    `yaml:"total_timeout_ms"`
	MaxRetries     int    `yaml:"max_retries"`
	BackoffMinMS   int    `yaml:"backoff_min_ms"`
	BackoffMaxMS   int    `yaml:"backoff_max_ms"`
	JitterPct      int    `yaml:"jitter_pct"`
	// The forum serves a stale certificate chain; verification stays off
	// for this one low-stakes public site.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

type RateLimitConfig struct {
	MaxConcurrentPerHost int `yaml:"max_concurrent_per_host"`
	RPM                  int `yaml:"rpm"`
}

// SelectorsConfig describes the topic-row markup contract. Defaults match
// the phpBB-style tables of the monitored forum.
type SelectorsConfig struct {
	Row        string `yaml:"row"`
	TitleLink  string `yaml:"title_link"`
	AuthorCell string `yaml:"author_cell"`
	DateCell   string `yaml:"date_cell"`
	DateSpan   string `yaml:"date_span"`
	PostBody   string `yaml:"post_body"`
}

type NormalizeConfig struct {
	TrimNBSP        bool `yaml:"trim_nbsp"`
	CollapseSpaces  bool `yaml:"collapse_spaces"`
	MaxPreviewChars int  `yaml:"max_preview_chars"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Sender   string `yaml:"sender"`
	Password string `yaml:"password"`
	Receiver string `yaml:"receiver"`
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
}

type ArchiveConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type SchedulerConfig struct {
	Mode     string `yaml:"mode"` // interval, cron or oneshot
	CronExpr string `yaml:"cron_expr"`
}

type ObservabilityConfig struct {
	LogPath    string `yaml:"log_path"`
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DomainConfig is one monitored listing category: its forum, keywords,
// labels and dedup state file.
type DomainConfig struct {
	Name          string   `yaml:"name"`
	Label         string   `yaml:"label"`
	SubjectPrefix string   `yaml:"subject_prefix"`
	ForumID       int      `yaml:"forum_id"`
	Pages         int      `yaml:"pages"`
	PageSize      int      `yaml:"page_size"`
	Keywords      []string `yaml:"keywords"`
	StateFile     string   `yaml:"state_file"`
	IntervalS     int      `yaml:"interval_s"`
}

// PageURLs builds the offset-paginated listing URLs for the domain.
// Page 1 is /c/forums/show/<forum>.page, page n skips (n-1)*page_size
// topics.
func (d *DomainConfig) PageURLs(baseOrigin string) []string {
	urls := make([]string, 0, d.Pages)
	for page := 1; page <= d.Pages; page++ {
		if page == 1 {
			urls = append(urls, fmt.Sprintf("%s/c/forums/show/%d.page", baseOrigin, d.ForumID))
			continue
		}
		offset := (page - 1) * d.PageSize
		urls = append(urls, fmt.Sprintf("%s/c/forums/show/%d/%d.page", baseOrigin, offset, d.ForumID))
	}
	return urls
}

func (d *DomainConfig) Interval() time.Duration {
	return time.Duration(d.IntervalS) * time.Second
}

// Validation
func (c *Config) Validate() error {
	if c.BaseOrigin == "" {
		return fmt.Errorf("base_origin is required")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.MaxRetries > 0 {
		if c.HTTP.BackoffMinMS <= 0 {
			return fmt.Errorf("http.backoff_min_ms must be > 0")
		}
		if c.HTTP.BackoffMaxMS < c.HTTP.BackoffMinMS {
			return fmt.Errorf("http.backoff_max_ms must be >= http.backoff_min_ms")
		}
		if c.HTTP.JitterPct < 0 || c.HTTP.JitterPct > 100 {
			return fmt.Errorf("http.jitter_pct must be between 0 and 100")
		}
	}
	if c.RateLimit.MaxConcurrentPerHost <= 0 {
		return fmt.Errorf("rate_limit.max_concurrent_per_host must be > 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if c.PolitenessDelayMS < 0 {
		return fmt.Errorf("politeness_delay_ms must be >= 0")
	}
	if c.Email.Enabled {
		if c.Email.Sender == "" {
			return fmt.Errorf("email.sender is required when email.enabled is true")
		}
		if c.Email.Receiver == "" {
			return fmt.Errorf("email.receiver is required when email.enabled is true")
		}
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required when email.enabled is true")
		}
		if c.Email.SMTPPort <= 0 {
			return fmt.Errorf("email.smtp_port must be > 0 when email.enabled is true")
		}
	}
	if c.Archive.Enabled {
		if c.Archive.Driver != "mssql" {
			return fmt.Errorf("archive.driver must be 'mssql'")
		}
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive.dsn is required when archive.enabled is true")
		}
		if c.Archive.CommandTimeoutMS <= 0 {
			return fmt.Errorf("archive.command_timeout_ms must be > 0")
		}
	}
	switch c.Scheduler.Mode {
	case "interval", "oneshot":
	case "cron":
		if c.Scheduler.CronExpr == "" {
			return fmt.Errorf("scheduler.cron_expr must be set when mode is 'cron'")
		}
	default:
		return fmt.Errorf("scheduler.mode must be 'interval', 'cron' or 'oneshot'")
	}
	if c.Observability.LogPath == "" {
		return fmt.Errorf("observability.log_path is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	if len(c.Domains) == 0 {
		return fmt.Errorf("at least one domain is required")
	}
	seen := make(map[string]bool)
	for i := range c.Domains {
		d := &c.Domains[i]
		if d.Name == "" {
			return fmt.Errorf("domains[%d].name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate domain name: %s", d.Name)
		}
		seen[d.Name] = true
		if d.ForumID <= 0 {
			return fmt.Errorf("domain %s: forum_id must be > 0", d.Name)
		}
		if d.Pages <= 0 {
			return fmt.Errorf("domain %s: pages must be > 0", d.Name)
		}
		if d.PageSize <= 0 {
			return fmt.Errorf("domain %s: page_size must be > 0", d.Name)
		}
		if len(d.Keywords) == 0 {
			return fmt.Errorf("domain %s: keywords are required", d.Name)
		}
		if d.StateFile == "" {
			return fmt.Errorf("domain %s: state_file is required", d.Name)
		}
		if c.Scheduler.Mode == "interval" && d.IntervalS <= 0 {
			return fmt.Errorf("domain %s: interval_s must be > 0 when scheduler.mode is 'interval'", d.Name)
		}
	}
	return nil
}

// Getters
func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.HTTP.BackoffMinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMS) * time.Millisecond
}

func (c *Config) GetPolitenessDelay() time.Duration {
	return time.Duration(c.PolitenessDelayMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Archive.CommandTimeoutMS) * time.Millisecond
}
