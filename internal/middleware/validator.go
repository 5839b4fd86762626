package middleware

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

const maxFilenameLen = 255

// ValidateFilename accepts a bare file name: no directories, no traversal,
// no control characters.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if len(name) > maxFilenameLen {
		return fmt.Errorf("filename too long (max %d characters)", maxFilenameLen)
	}
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid filename: %s", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("path traversal detected")
	}
	if SanitizeString(name) != name {
		return fmt.Errorf("invalid characters in filename")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit clamps a list limit into [1, 100]; 0 and below mean 20.
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// MaxBodyBytes caps request bodies. Reads past n fail and the handler
// answers 400 or 413.
func MaxBodyBytes(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
