// Package redact removes sensitive information from strings before they are
// logged or returned in error responses: credentials, connection strings,
// session tokens, and email addresses.
package redact

import "regexp"

// Redaction placeholders
const (
	RedactedCredential = "[REDACTED_CREDENTIAL]"
	RedactedKey        = "[REDACTED_KEY]"
	RedactedToken      = "[REDACTED_TOKEN]"
	RedactedEmail      = "[REDACTED_EMAIL]"
)

// Precompiled patterns, applied in order.
var (
	// Database connection strings with inline credentials
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Password-like key/value fragments
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?|['"]?[=:])[^'"&\s]{3,}`)

	// API keys and signing secrets
	apiKeyRegex = regexp.MustCompile(`(?i)(api[_-]?key|secret|sendgrid)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// Three-part base64url JWTs
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Bcrypt hashes
	bcryptRegex = regexp.MustCompile(`\$2[aby]\$\d{2}\$[./A-Za-z0-9]{20,}`)

	// Email addresses
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	placeholders = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{dbConnRegex, RedactedCredential},
		{passwordRegex, RedactedCredential},
		{apiKeyRegex, RedactedKey},
		{jwtTokenRegex, RedactedToken},
		{bcryptRegex, RedactedCredential},
		{emailRegex, RedactedEmail},
	}
)

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, p := range placeholders {
		result = p.pattern.ReplaceAllString(result, p.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
