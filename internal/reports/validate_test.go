package reports

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		valid  bool
		reason string
	}{
		{name: "https ok", url: "https://example.com", valid: true},
		{name: "http ok", url: "http://example.com/page", valid: true},
		{name: "empty", url: "", valid: false, reason: "url is required"},
		{name: "relative", url: "/path/only", valid: false, reason: "url must be absolute"},
		{name: "missing host", url: "http://", valid: false, reason: "url must be absolute"},
		{name: "missing host with path", url: "https:///page", valid: false, reason: "url must be absolute"},
		{name: "ftp scheme", url: "ftp://example.com", valid: false, reason: "url scheme must be http or https"},
		{name: "localhost", url: "http://localhost:3000", valid: false, reason: "url must be publicly reachable"},
		{name: "loopback", url: "http://127.0.0.1/admin", valid: false, reason: "url must be publicly reachable"},
		{name: "private 192", url: "https://192.168.1.5", valid: false, reason: "url must be publicly reachable"},
		{name: "private 10", url: "https://10.0.0.8/internal", valid: false, reason: "url must be publicly reachable"},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", 2048), valid: false, reason: "url exceeds maximum length"},
		{name: "exactly max length", url: "https://example.com/" + strings.Repeat("a", 2048-len("https://example.com/")), valid: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := ValidateURL(tt.url)
			if valid != tt.valid {
				t.Fatalf("ValidateURL(%q) valid = %v, want %v (reason %q)", tt.url, valid, tt.valid, reason)
			}
			if !tt.valid && reason != tt.reason {
				t.Fatalf("ValidateURL(%q) reason = %q, want %q", tt.url, reason, tt.reason)
			}
		})
	}
}

func TestValidateURLSchemeBeforeHost(t *testing.T) {
	// Scheme check fires before the private-host check.
	_, reason := ValidateURL("ftp://localhost")
	if reason != "url scheme must be http or https" {
		t.Fatalf("reason = %q", reason)
	}
}
