// validation.go - Input sanitization helpers.
package server

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// sanitizeFilename reduces a client-supplied name to something safe to embed
// in a storage key: no path separators, no control characters, no leading
// dots. The result is never used to address storage on its own.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if len(out) > 128 {
		out = out[len(out)-128:]
	}
	if out == "" {
		out = "file"
	}
	return out
}

// newStorageKey builds a collision-resistant, filesystem-safe blob key:
// a random UUID prefix joined with the sanitized display name. The display
// name part is cosmetic; uniqueness comes entirely from the UUID.
func newStorageKey(displayName string) string {
	return uuid.NewString() + "_" + sanitizeFilename(displayName)
}

// validateNewUser enforces the account creation contract: both fields
// non-empty after trimming.
func validateNewUser(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username"}
	}
	if password == "" {
		return &ValidationError{Field: "password"}
	}
	return nil
}

// formatSize renders a byte count for dashboards, decimal units.
func formatSize(sizeBytes int64) string {
	if sizeBytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	size := float64(sizeBytes)
	i := 0
	for size >= 1000 && i < len(units)-1 {
		size /= 1000
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
