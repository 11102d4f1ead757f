package sanitizer

import (
	"net/url"
	"strings"
)

// SanitizeURL trims an image reference and rejects anything that is not an
// absolute http(s) URL, returning "" for unusable values.
func SanitizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return u.String()
}
