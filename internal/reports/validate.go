package reports

import (
	"net/url"
	"strings"
)

const maxURLLength = 2048

// ValidateURL checks a submitted URL before any quota or vendor work
// happens. Rules apply in order; the first failure's reason is returned.
func ValidateURL(raw string) (valid bool, reason string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, "url is required"
	}

	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return false, "url must be absolute"
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, "url scheme must be http or https"
	}

	host := strings.ToLower(parsed.Hostname())
	if isPrivateHost(host) {
		return false, "url must be publicly reachable"
	}

	if len(raw) > maxURLLength {
		return false, "url exceeds maximum length"
	}

	return true, ""
}

// isPrivateHost rejects localhost and common private ranges so analysis
// requests cannot probe internal networks.
func isPrivateHost(host string) bool {
	if host == "localhost" {
		return true
	}
	for _, prefix := range []string{"127.", "192.168.", "10."} {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}
