package common

import (
	"regexp"
	"strings"
)

// SensitivePattern describes one class of sensitive data to hide in logs.
type SensitivePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Keys        []string // attribute keys masked wholesale (case-insensitive)
}

const maskedValue = "***MASKED***"

// DefaultSensitivePatterns covers the credentials this harness handles:
// gateway passwords, issued auth tokens and Authorization headers.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)("password"\s*:\s*)"[^"]*"`),
		Replacement: `${1}"` + maskedValue + `"`,
		Keys:        []string{"password"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)("(?:auth[_-]?)?token"\s*:\s*)"[^"]*"`),
		Replacement: `${1}"` + maskedValue + `"`,
		Keys:        []string{"token", "auth_token"},
	},
	{
		Name:        "bearer",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + maskedValue,
		Keys:        []string{"authorization"},
	},
}

// Masker hides sensitive values in log output.
type Masker struct {
	patterns []SensitivePattern
	enabled  bool
}

// NewMasker creates a masker with the default patterns.
func NewMasker() *Masker {
	return &Masker{patterns: DefaultSensitivePatterns, enabled: true}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled
}

// MaskString masks sensitive information embedded in a string, such as a
// request body or an Authorization header value.
func (m *Masker) MaskString(input string) string {
	if !m.enabled {
		return input
	}
	out := input
	for _, p := range m.patterns {
		out = p.Regex.ReplaceAllString(out, p.Replacement)
	}
	return out
}

// MaskValue masks a log attribute value based on its key and content.
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.enabled {
		return value
	}
	lower := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lower == k {
				return maskedValue
			}
		}
	}
	if s, ok := value.(string); ok {
		return m.MaskString(s)
	}
	return value
}
