package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable that overrides email.password so the SMTP
// credential can stay out of the yaml file.
const envSMTPPassword = "DADI_SMTP_PASSWORD"

func LoadConfig(filePath string) (*Config, error) {
	// Optional .env next to the working directory; absence is fine.
	_ = godotenv.Load()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Printf("Warning: failed to close config file: %v", closeErr)
		}
	}()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if pw := os.Getenv(envSMTPPassword); pw != "" {
		cfg.Email.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Selectors.Row == "" {
		c.Selectors.Row = "tr.bg_small_yellow"
	}
	if c.Selectors.TitleLink == "" {
		c.Selectors.TitleLink = "a[href]"
	}
	if c.Selectors.AuthorCell == "" {
		c.Selectors.AuthorCell = "td.row3"
	}
	if c.Selectors.DateCell == "" {
		c.Selectors.DateCell = "td.row3[nowrap]"
	}
	if c.Selectors.DateSpan == "" {
		c.Selectors.DateSpan = "span.postdetails"
	}
	if c.Selectors.PostBody == "" {
		c.Selectors.PostBody = "div.postbody"
	}
	for i := range c.Domains {
		if c.Domains[i].PageSize == 0 {
			c.Domains[i].PageSize = 90
		}
		if c.Domains[i].Pages == 0 {
			c.Domains[i].Pages = 5
		}
	}
}
