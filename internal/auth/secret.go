package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
)

// ResolveSecret returns configured, or a random ephemeral secret when it is
// empty. name only labels the warning.
func ResolveSecret(name, configured string) (string, error) {
	if s := strings.TrimSpace(configured); s != "" {
		return s, nil
	}

	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate %s fallback: %w", name, err)
	}
	slog.Warn(name + " is not set; using ephemeral in-memory fallback secret")
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
