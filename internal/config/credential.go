package config

import (
	"os"
	"strings"
)

// LoadCredential reads the API key from a plain-text file.
// A missing, unreadable or blank file reports ok=false instead of an error:
// the CLI prints guidance and exits rather than failing hard.
func LoadCredential(path string) (key string, ok bool) {
	if path == "" {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	key = strings.TrimSpace(string(data))
	if key == "" {
		return "", false
	}
	return key, true
}
