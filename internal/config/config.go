// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/geo-toolkit/internal/llm"
	"github.com/jonathan/geo-toolkit/internal/scrape"
	"github.com/jonathan/geo-toolkit/internal/search"
	"github.com/jonathan/geo-toolkit/internal/server/ratelimit"
)

// DefaultCallTimeout bounds a single collaborator call when no timeout is configured.
const DefaultCallTimeout = 90 * time.Second

// Config represents the toolkit configuration. Values come from an optional
// JSON or YAML file and from the environment; the environment wins.
type Config struct {
	// Credentials
	GeminiAPIKey       string `mapstructure:"gemini_api_key" json:"gemini_api_key,omitempty"`
	TavilyAPIKey       string `mapstructure:"tavily_api_key" json:"tavily_api_key,omitempty"`
	FirecrawlAPIKey    string `mapstructure:"firecrawl_api_key" json:"firecrawl_api_key,omitempty"`
	GoogleSearchAPIKey string `mapstructure:"google_search_api_key" json:"google_search_api_key,omitempty"`
	GoogleSearchCX     string `mapstructure:"google_search_cx" json:"google_search_cx,omitempty"`
	AccessToken        string `mapstructure:"access_token" json:"access_token,omitempty"` // Bearer token for the HTTP API

	// Providers
	SearchProvider string `mapstructure:"search_provider" json:"search_provider,omitempty"` // tavily or google
	ScrapeProvider string `mapstructure:"scrape_provider" json:"scrape_provider,omitempty"` // firecrawl or direct

	// Behavior
	UseBrowser  bool          `mapstructure:"use_browser" json:"use_browser,omitempty"`   // Render thin pages with headless Chrome (direct scraper)
	CallTimeout time.Duration `mapstructure:"call_timeout" json:"call_timeout,omitempty"` // Per-call deadline for search, scrape and LLM calls
	Port        int           `mapstructure:"port" json:"port,omitempty"`
	Verbose     bool          `mapstructure:"verbose" json:"verbose,omitempty"`

	Models    Models    `mapstructure:"models" json:"models,omitempty"`
	RateLimit RateLimit `mapstructure:"rate_limit" json:"rate_limit,omitempty"`
}

// Models overrides the model used for each tier.
type Models struct {
	Lite     string `mapstructure:"lite" json:"lite,omitempty"`
	Standard string `mapstructure:"standard" json:"standard,omitempty"`
	Advanced string `mapstructure:"advanced" json:"advanced,omitempty"`
}

// RateLimit bounds how often one client may start pipeline runs on the server.
type RateLimit struct {
	Enabled   bool          `mapstructure:"enabled" json:"enabled"`
	Limit     int           `mapstructure:"limit" json:"limit,omitempty"`
	Window    time.Duration `mapstructure:"window" json:"window,omitempty"`
	Burst     int           `mapstructure:"burst" json:"burst,omitempty"`
	Whitelist []string      `mapstructure:"whitelist" json:"whitelist,omitempty"`
	Blacklist []string      `mapstructure:"blacklist" json:"blacklist,omitempty"`
}

// envBindings maps config keys to the environment variables that can set them.
// The first name found wins.
var envBindings = map[string][]string{
	"gemini_api_key":        {"GEMINI_API_KEY", "VITE_GEMINI_API_KEY"},
	"tavily_api_key":        {"TAVILY_API_KEY", "VITE_TAVILY_API_KEY"},
	"firecrawl_api_key":     {"FIRECRAWL_API_KEY", "VITE_FIRECRAWL_API_KEY"},
	"google_search_api_key": {"GOOGLE_SEARCH_API_KEY"},
	"google_search_cx":      {"GOOGLE_SEARCH_CX"},
	"access_token":          {"ACCESS_TOKEN"},
	"search_provider":       {"SEARCH_PROVIDER"},
	"scrape_provider":       {"SCRAPE_PROVIDER"},
	"use_browser":           {"USE_BROWSER"},
	"call_timeout":          {"CALL_TIMEOUT"},
	"port":                  {"PORT"},
	"models.lite":           {"GEO_MODEL_LITE"},
	"models.standard":       {"GEO_MODEL_STANDARD"},
	"models.advanced":       {"GEO_MODEL_ADVANCED"},
	"rate_limit.enabled":    {"RATE_LIMIT_ENABLED"},
	"rate_limit.limit":      {"RATE_LIMIT_LIMIT"},
	"rate_limit.window":     {"RATE_LIMIT_WINDOW"},
	"rate_limit.burst":      {"RATE_LIMIT_BURST"},
	"rate_limit.whitelist":  {"RATE_LIMIT_WHITELIST"},
	"rate_limit.blacklist":  {"RATE_LIMIT_BLACKLIST"},
}

// Load reads configuration from the environment and, when path is non-empty,
// from the given file. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("search_provider", search.ProviderTavily)
	v.SetDefault("scrape_provider", scrape.ProviderFirecrawl)
	v.SetDefault("call_timeout", DefaultCallTimeout)
	v.SetDefault("port", 8080)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.window", time.Hour)
	v.SetDefault("rate_limit.burst", 2)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SearchProvider = strings.ToLower(strings.TrimSpace(cfg.SearchProvider))
	cfg.ScrapeProvider = strings.ToLower(strings.TrimSpace(cfg.ScrapeProvider))

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: API keys are not required here; each pipeline reports its own
// missing key when it runs.
func (c *Config) Validate() error {
	switch c.SearchProvider {
	case "", search.ProviderTavily:
	case search.ProviderGoogle:
		if c.GoogleSearchCX == "" {
			return fmt.Errorf("config error: 'google_search_cx' is required when search_provider is %q", search.ProviderGoogle)
		}
	default:
		return fmt.Errorf("config error: unknown search_provider %q", c.SearchProvider)
	}

	switch c.ScrapeProvider {
	case "", scrape.ProviderFirecrawl, scrape.ProviderDirect:
	default:
		return fmt.Errorf("config error: unknown scrape_provider %q", c.ScrapeProvider)
	}

	if c.CallTimeout < 0 {
		return fmt.Errorf("config error: 'call_timeout' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("config error: 'rate_limit.limit' and 'rate_limit.window' must be positive when rate limiting is enabled")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply file and environment values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.TavilyAPIKey == "" {
		result.TavilyAPIKey = defaults.TavilyAPIKey
	}
	if result.FirecrawlAPIKey == "" {
		result.FirecrawlAPIKey = defaults.FirecrawlAPIKey
	}
	if result.GoogleSearchAPIKey == "" {
		result.GoogleSearchAPIKey = defaults.GoogleSearchAPIKey
	}
	if result.GoogleSearchCX == "" {
		result.GoogleSearchCX = defaults.GoogleSearchCX
	}
	if result.AccessToken == "" {
		result.AccessToken = defaults.AccessToken
	}
	if result.SearchProvider == "" {
		result.SearchProvider = defaults.SearchProvider
	}
	if result.ScrapeProvider == "" {
		result.ScrapeProvider = defaults.ScrapeProvider
	}
	if result.Models.Lite == "" {
		result.Models.Lite = defaults.Models.Lite
	}
	if result.Models.Standard == "" {
		result.Models.Standard = defaults.Models.Standard
	}
	if result.Models.Advanced == "" {
		result.Models.Advanced = defaults.Models.Advanced
	}

	// Numeric fields: use default if zero
	if result.CallTimeout == 0 {
		result.CallTimeout = defaults.CallTimeout
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Rate limit is set as a whole
	if result.RateLimit.Limit == 0 && result.RateLimit.Window == 0 {
		result.RateLimit = defaults.RateLimit
	}

	// Bool fields: either side may switch them on
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// LLMConfig returns the model configuration with any tier overrides applied.
func (c *Config) LLMConfig() *llm.Config {
	return llm.DefaultConfig().
		WithModel(llm.TierLite, c.Models.Lite).
		WithModel(llm.TierStandard, c.Models.Standard).
		WithModel(llm.TierAdvanced, c.Models.Advanced)
}

// SearchSettings returns the settings for search.New.
func (c *Config) SearchSettings() search.Settings {
	return search.Settings{
		Provider:     c.SearchProvider,
		TavilyAPIKey: c.TavilyAPIKey,
		GoogleAPIKey: c.GoogleSearchAPIKey,
		GoogleCX:     c.GoogleSearchCX,
	}
}

// ScrapeSettings returns the settings for scrape.New.
func (c *Config) ScrapeSettings() scrape.Settings {
	return scrape.Settings{
		Provider:        c.ScrapeProvider,
		FirecrawlAPIKey: c.FirecrawlAPIKey,
		UseBrowser:      c.UseBrowser,
		BrowserTimeout:  c.CallTimeout,
	}
}

// RateLimitSettings returns the settings for ratelimit.NewConfig.
func (c *Config) RateLimitSettings() ratelimit.Settings {
	return ratelimit.Settings{
		Enabled:   c.RateLimit.Enabled,
		Limit:     c.RateLimit.Limit,
		Window:    c.RateLimit.Window,
		Burst:     c.RateLimit.Burst,
		Whitelist: c.RateLimit.Whitelist,
		Blacklist: c.RateLimit.Blacklist,
	}
}
