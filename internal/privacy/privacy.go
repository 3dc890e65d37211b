// Package privacy provides scrubbing helpers for data that leaves the
// process through telemetry: URL anonymization, filesystem path masking,
// and system ID generation.
package privacy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Pre-compiled patterns, scrubbing runs on every telemetry report
var (
	// DSN pattern must run before the generic URL pattern or the key leaks
	// into the URL hash input
	dsnPattern = regexp.MustCompile(`\bhttps?://[0-9a-fA-F]{8,}@\S+`)

	// URL pattern for finding URLs in text
	urlPattern = regexp.MustCompile(`\b(?:https?|ws|wss)://\S+`)

	// Home directory prefixes, the username segment is the sensitive part
	homePattern = regexp.MustCompile(`(/home/|/Users/|C:\\Users\\)[^/\\\s]+`)

	// IPv4 pattern for host categorization
	ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// ScrubMessage removes or anonymizes sensitive information from telemetry
// messages: ingest DSNs, URLs, and home directory usernames. Error messages
// routinely embed config, topology, and media file paths, so the home
// segment is masked while the rest of the path is kept for debugging value.
func ScrubMessage(message string) string {
	scrubbed := dsnPattern.ReplaceAllString(message, "[DSN_REDACTED]")
	scrubbed = urlPattern.ReplaceAllStringFunc(scrubbed, AnonymizeURL)
	scrubbed = homePattern.ReplaceAllString(scrubbed, "$1[USER]")
	return scrubbed
}

// AnonymizeURL converts a URL to an anonymized form while preserving
// debugging value. The scheme, host category, port, and path structure feed
// a stable hash, so repeated reports of the same endpoint group together
// without revealing it.
func AnonymizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var normalizedParts []string

	if parsedURL.Scheme != "" {
		normalizedParts = append(normalizedParts, parsedURL.Scheme)
	}

	host := parsedURL.Hostname()
	if host != "" {
		normalizedParts = append(normalizedParts, categorizeHost(host))
	}

	if parsedURL.Port() != "" {
		normalizedParts = append(normalizedParts, "port-"+parsedURL.Port())
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		normalizedParts = append(normalizedParts, AnonymizePath(parsedURL.Path))
	}

	normalized := strings.Join(normalizedParts, ":")
	hash := sha256.Sum256([]byte(normalized))

	return fmt.Sprintf("url-%x", hash[:12])
}

// AnonymizePath creates a structure-preserving but privacy-safe path
// representation. Well-known runtime directory names survive as-is, numeric
// segments collapse to a marker, and everything else is replaced by a short
// per-segment hash so two reports of the same file still correlate.
func AnonymizePath(path string) string {
	path = strings.Trim(strings.ReplaceAll(path, "\\", "/"), "/")
	if path == "" {
		return "root"
	}

	segments := strings.Split(path, "/")
	anonymized := make([]string, 0, len(segments))

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		switch {
		case isWellKnownDir(segment):
			anonymized = append(anonymized, strings.ToLower(segment))
		case isNumeric(segment):
			anonymized = append(anonymized, "numeric")
		default:
			hash := sha256.Sum256([]byte(segment))
			anonymized = append(anonymized, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}

	return strings.Join(anonymized, "/")
}

// GenerateSystemID creates a unique installation identifier for telemetry
// grouping. The ID is 12 hex characters formatted XXXX-XXXX-XXXX, carries no
// host or user information, and is stable for the life of the install.
func GenerateSystemID() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	id := hex.EncodeToString(bytes)
	formatted := fmt.Sprintf("%s-%s-%s", id[0:4], id[4:8], id[8:12])

	return strings.ToUpper(formatted), nil
}

// IsValidSystemID checks if a system ID has the XXXX-XXXX-XXXX format.
func IsValidSystemID(id string) bool {
	if len(id) != 14 {
		return false
	}

	if id[4] != '-' || id[9] != '-' {
		return false
	}

	for i, char := range id {
		if i == 4 || i == 9 {
			continue
		}
		if !isHexChar(char) {
			return false
		}
	}

	return true
}

// categorizeHost anonymizes hostnames while preserving useful categorization
func categorizeHost(host string) string {
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}

	if isPrivateIP(host) {
		return "private-ip"
	}

	if isIPAddress(host) {
		return "public-ip"
	}

	// For domain names, preserve TLD only
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return "domain-" + parts[len(parts)-1]
	}

	return "unknown-host"
}

// isPrivateIP checks if the host is a private IP address (both IPv4 and IPv6)
func isPrivateIP(host string) bool {
	privateRanges := []string{
		"10.", "172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.", "172.23.",
		"172.24.", "172.25.", "172.26.", "172.27.", "172.28.", "172.29.", "172.30.", "172.31.",
		"192.168.", "169.254.",
		"fc00:", "fd00:",
		"fe80:",
		"::1",
		"ff00:", "ff01:", "ff02:",
	}

	for _, prefix := range privateRanges {
		if strings.HasPrefix(strings.ToLower(host), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// isIPAddress checks if the host looks like an IP address
func isIPAddress(host string) bool {
	if ipv4Pattern.MatchString(host) {
		return true
	}

	// IPv6 hosts contain colons
	return strings.Contains(host, ":")
}

// isWellKnownDir reports whether a path segment is a runtime directory name
// the process creates itself and therefore carries no user information.
func isWellKnownDir(segment string) bool {
	wellKnown := []string{"logs", "config", "data", "clips", "tmp", "topologies"}
	segment = strings.ToLower(segment)

	for _, name := range wellKnown {
		if segment == name {
			return true
		}
	}
	return false
}

// isNumeric checks if a string is purely numeric
func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// isHexChar checks if a rune is a valid hex character
func isHexChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}
