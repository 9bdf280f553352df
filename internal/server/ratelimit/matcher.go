package ratelimit

import (
	"strings"
)

// MatchEndpoint returns the configuration for path and method, or nil.
// Exact paths win over "/"-terminated prefixes.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	for i := range configs {
		c := &configs[i]
		if c.Path == path && c.Method == method {
			return c
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}

// IsExempt reports whether path is never rate limited. Entries ending in
// "/" match as prefixes.
func IsExempt(path string, exempt []string) bool {
	for _, e := range exempt {
		if e == path || (strings.HasSuffix(e, "/") && strings.HasPrefix(path, e)) {
			return true
		}
	}
	return false
}
