package mysql

import (
	"encoding/json"
	"strings"
	"time"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// jsonOrEmpty keeps JSON columns valid: empty input becomes {} and
// anything unparsable is wrapped as {"raw": "..."}.
func jsonOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(s), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": s})
		return string(b)
	}
	return s
}

func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
