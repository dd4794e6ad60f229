package binance

import (
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	DefaultTimeout = 10 * time.Second
)

// Config configures the REST client. Zero values fall back to defaults.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	ProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	return out
}
