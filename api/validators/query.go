package validators

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/forno-digital/pizzaria-backend/pkg/errors"
)

// ParseQueryDate reads an optional YYYY-MM-DD query parameter. An empty
// value returns "" with no error so callers can apply their own default.
func ParseQueryDate(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a YYYY-MM-DD date").
			WithDetails(map[string]any{"field": key})
	}
	return raw, nil
}

// SanitizeString trims whitespace and caps the value at maxLen runes, so a
// multi-byte character is never split mid-sequence.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	if runes := []rune(trimmed); len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
