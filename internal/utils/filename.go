package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SanitizeFilename removes characters that are invalid in file paths.
func SanitizeFilename(name string) string {
	re := regexp.MustCompile(`[<>:"/\\|?*]`)
	sanitized := re.ReplaceAllString(name, "")
	// Trailing spaces or periods are problematic on some filesystems
	sanitized = strings.TrimRight(sanitized, " .")
	return sanitized
}

var btihRe = regexp.MustCompile(`(?i)urn:btih:([0-9a-f]{40}|[a-z2-7]{32})`)

// InfoHashFromMagnet extracts the btih info-hash from a magnet URI.
func InfoHashFromMagnet(magnet string) (string, error) {
	if !strings.HasPrefix(magnet, "magnet:") {
		return "", fmt.Errorf("not a magnet URI")
	}
	u, err := url.Parse(magnet)
	if err != nil {
		return "", fmt.Errorf("invalid magnet URI: %w", err)
	}
	for _, xt := range u.Query()["xt"] {
		if m := btihRe.FindStringSubmatch(xt); m != nil {
			return strings.ToLower(m[1]), nil
		}
	}
	return "", fmt.Errorf("magnet URI has no btih info-hash")
}
