package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Settings are the user-facing knobs for the pipeline endpoints.
type Settings struct {
	Enabled   bool
	Limit     int           // Pipeline runs per window per client
	Window    time.Duration
	Burst     int
	Whitelist []string
	Blacklist []string
}

// NewConfig builds the limiter configuration from settings. Pipeline runs
// get the configured budget; snapshot reads fall back to a lenient default.
func NewConfig(s Settings) *Config {
	if !s.Enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       toSet(s.Whitelist),
		Blacklist:       toSet(s.Blacklist),
		EndpointConfigs: PipelineEndpointConfigs(s.Limit, s.Window, s.Burst),
	}
}

// PipelineEndpointConfigs returns the limits for the endpoints that start
// pipeline runs, which call paid external APIs.
func PipelineEndpointConfigs(limit int, window time.Duration, burst int) []EndpointConfig {
	paths := []string{
		"/audit", "/audit/stream",
		"/compare", "/compare/stream",
		"/fact-check", "/fact-check/stream",
	}
	configs := make([]EndpointConfig, 0, len(paths))
	for _, path := range paths {
		configs = append(configs, EndpointConfig{Path: path, Method: "POST", Limit: limit, Window: window, Burst: burst})
	}
	return configs
}

// toSet turns a list of IP addresses into a lookup map.
func toSet(list []string) map[string]bool {
	result := make(map[string]bool, len(list))
	for _, ip := range list {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
