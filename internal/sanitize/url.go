package sanitize

import (
	"net/url"
	"strings"
)

// IsSafeURL reports whether candidate is an absolute URL with an
// http or https scheme. Every other scheme is rejected, which blocks
// javascript:, data:, vbscript:, file: and about: payloads stored in
// course metadata or returned by a search tool.
//
// The check is purely syntactic; no network resolution is attempted.
func IsSafeURL(candidate string) bool {
	if candidate == "" {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}
