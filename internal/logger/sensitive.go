package logger

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveDataPatterns match secrets embedded in free text such as URLs
var sensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9\-._~+/]+=*)`),
	// query parameters: ?key=..., &api_key=..., token=...
	regexp.MustCompile(`(?i)([?&](key|api_key|apikey|token|access_token)=)([^&\s"]+)`),
	regexp.MustCompile(`(?i)((api[_-]?key|secret|passw(or)?d)[\s:=]+)([^;,\s]{5,})`),
}

// sensitiveKeywords mark field keys whose values are never logged
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "api_key",
	"apikey", "authorization", "cookie", "dsn",
}

// RedactSensitiveData replaces secrets inside input with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range sensitiveDataPatterns {
		input = pattern.ReplaceAllStringFunc(input, func(match string) string {
			sub := pattern.FindStringSubmatch(match)
			return sub[1] + redacted
		})
	}
	return input
}

// isSensitiveKey reports whether a field key names a secret
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}

// redactField hides sensitive string values and scrubs secrets from the rest
func redactField(f Field) Field {
	s, ok := f.Value.(string)
	if !ok || s == "" {
		return f
	}
	if isSensitiveKey(f.Key) {
		return Field{Key: f.Key, Value: redacted}
	}
	if cleaned := RedactSensitiveData(s); cleaned != s {
		return Field{Key: f.Key, Value: cleaned}
	}
	return f
}
