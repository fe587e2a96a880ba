// Package security validates target URLs before they reach the browser.
//
// The service renders arbitrary caller-supplied URLs in a real browser, so
// every target must be screened against SSRF: loopback, private and
// link-local ranges, cloud metadata endpoints, embedded credentials, and
// numerically encoded hosts are all rejected up front.
package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var privateIPPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^127\.`),
	regexp.MustCompile(`^10\.`),
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`),
	regexp.MustCompile(`^192\.168\.`),
	regexp.MustCompile(`^0\.`),
	regexp.MustCompile(`^169\.254\.`),
	regexp.MustCompile(`^::1$`),
	regexp.MustCompile(`(?i)^fc00:`),
	regexp.MustCompile(`(?i)^fe80:`),
}

var blockedHostnames = map[string]struct{}{
	"localhost":               {},
	"metadata.google.internal": {},
	"metadata":                {},
	"kubernetes.default":      {},
	"kubernetes.default.svc":  {},
}

var (
	decimalHost = regexp.MustCompile(`^\d+$`)
	octalHost   = regexp.MustCompile(`^0[0-7]+\.`)
	hexHost     = regexp.MustCompile(`(?i)^0x[0-9a-f]+`)
)

// ValidateURL screens a target URL for SSRF. It returns nil when the URL is
// safe to hand to the browser, otherwise an error describing the rejection.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("protocol %q is not allowed, only http and https are permitted", u.Scheme)
	}

	host := u.Hostname()
	lower := strings.ToLower(host)

	if _, blocked := blockedHostnames[lower]; blocked {
		return fmt.Errorf("access to internal or private resources is not allowed")
	}
	if strings.HasSuffix(lower, ".internal") ||
		strings.HasSuffix(lower, ".local") ||
		strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("access to internal or private resources is not allowed")
	}

	for _, pattern := range privateIPPatterns {
		if pattern.MatchString(host) {
			return fmt.Errorf("access to internal or private resources is not allowed")
		}
	}

	if u.User != nil {
		return fmt.Errorf("URLs with embedded credentials are not allowed")
	}

	if decimalHost.MatchString(host) {
		return fmt.Errorf("numeric IP addresses are not allowed")
	}
	if octalHost.MatchString(host) {
		return fmt.Errorf("octal IP addresses are not allowed")
	}
	if hexHost.MatchString(host) {
		return fmt.Errorf("hexadecimal IP addresses are not allowed")
	}

	return nil
}
