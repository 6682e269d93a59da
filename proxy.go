package sessionguard

import (
	"net/http"
	"strings"
)

// TrustedProxyConfig defines which reverse proxy headers to trust when the
// guard reconstructs the original request URL for the return_to parameter
// on sign-in redirects.
//
// SECURITY WARNING: Only enable when behind a trusted reverse proxy!
// Enabling this in direct internet-facing deployments allows header
// injection attacks, which here means attacker-controlled redirect targets
// after sign-in.
//
// A nil config means NO headers are trusted; each header type requires an
// explicit opt-in. RFC 7239 Forwarded takes precedence over X-Forwarded-*
// when both are enabled, and the leftmost value is used for multi-proxy
// chains (closest to the client). Empty or malformed headers are safely
// ignored and the guard falls back to the direct request.
type TrustedProxyConfig struct {
	// TrustXForwardedProto enables X-Forwarded-Proto header (https/http scheme)
	TrustXForwardedProto bool

	// TrustXForwardedHost enables X-Forwarded-Host header (original hostname)
	TrustXForwardedHost bool

	// TrustXForwardedPrefix enables X-Forwarded-Prefix header (API gateway path prefix)
	TrustXForwardedPrefix bool

	// TrustForwarded enables RFC 7239 Forwarded header (structured format)
	TrustForwarded bool
}

// hasAnyTrustedHeaders returns true if any header trust flags are enabled
func (c *TrustedProxyConfig) hasAnyTrustedHeaders() bool {
	if c == nil {
		return false
	}
	return c.TrustXForwardedProto ||
		c.TrustXForwardedHost ||
		c.TrustXForwardedPrefix ||
		c.TrustForwarded
}

// reconstructRequestURL builds the full URL the client originally requested
// so sign-in can send the user back to it. It respects the
// TrustedProxyConfig to determine which headers to trust.
//
// When no proxy config is set or all flags are false (secure default),
// it uses the request URL as-is without trusting any forwarded headers.
//
// Per RFC 3986 Section 6.2.3, default ports are normalized:
// - http://example.com:80/ → http://example.com/
// - https://example.com:443/ → https://example.com/
// - Non-standard ports are preserved: http://example.com:8080/ → http://example.com:8080/
func reconstructRequestURL(r *http.Request, config *TrustedProxyConfig) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	host := r.Host
	path := r.URL.Path
	query := r.URL.RawQuery
	pathPrefix := ""

	// If no proxy config or all flags false, use request URL as-is (secure default)
	if config == nil || !config.hasAnyTrustedHeaders() {
		host = normalizePort(host, scheme)
		url := scheme + "://" + host + path
		if query != "" {
			url += "?" + query
		}
		return url
	}

	forwardedScheme := ""
	forwardedHost := ""

	// 1. Try RFC 7239 Forwarded header (takes precedence)
	if config.TrustForwarded {
		if forwarded := r.Header.Get("Forwarded"); forwarded != "" {
			forwardedScheme, forwardedHost = parseForwardedHeader(forwarded)
			if forwardedScheme != "" {
				scheme = forwardedScheme
			}
			if forwardedHost != "" {
				host = forwardedHost
			}
		}
	}

	// 2. Try X-Forwarded-* headers - only if Forwarded didn't provide values
	if config.TrustXForwardedProto && forwardedScheme == "" {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = getLeftmost(proto)
		}
	}

	if config.TrustXForwardedHost && forwardedHost == "" {
		if hostHeader := r.Header.Get("X-Forwarded-Host"); hostHeader != "" {
			host = getLeftmost(hostHeader)
		}
	}

	if config.TrustXForwardedPrefix {
		if prefix := r.Header.Get("X-Forwarded-Prefix"); prefix != "" {
			pathPrefix = getLeftmost(prefix)
			// Ensure prefix starts with / and doesn't end with /
			if !strings.HasPrefix(pathPrefix, "/") {
				pathPrefix = "/" + pathPrefix
			}
			pathPrefix = strings.TrimSuffix(pathPrefix, "/")
		}
	}

	// 3. Normalize port based on scheme (strip default ports)
	host = normalizePort(host, scheme)

	// 4. Build reconstructed URL with optional prefix
	fullPath := pathPrefix + path
	reconstructed := scheme + "://" + host + fullPath
	if query != "" {
		reconstructed += "?" + query
	}

	return reconstructed
}

// getLeftmost extracts the leftmost value from a comma-separated header.
// This handles multiple proxies: "value1, value2, value3" -> "value1"
// The leftmost value is closest to the client.
func getLeftmost(header string) string {
	parts := strings.Split(header, ",")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// parseForwardedHeader parses RFC 7239 Forwarded header.
// Example: "for=192.0.2.60;proto=https;host=api.example.com"
// Returns extracted scheme and host.
func parseForwardedHeader(forwarded string) (scheme, host string) {
	// Handle multiple forwarded entries (leftmost is closest to client)
	entries := strings.Split(forwarded, ",")
	if len(entries) == 0 {
		return "", ""
	}

	// Parse the first (leftmost) entry
	entry := strings.TrimSpace(entries[0])
	parts := strings.Split(entry, ";")

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "proto=") {
			scheme = strings.TrimPrefix(part, "proto=")
			scheme = strings.Trim(scheme, `"`)
		} else if strings.HasPrefix(part, "host=") {
			host = strings.TrimPrefix(part, "host=")
			host = strings.Trim(host, `"`)
		}
	}

	return scheme, host
}

// normalizePort strips default ports per RFC 3986 Section 6.2.3 so that
// semantically equivalent URLs compare and display the same.
func normalizePort(host, scheme string) string {
	colonIdx := strings.LastIndex(host, ":")
	if colonIdx == -1 {
		return host
	}

	// IPv6 addresses like [::1]:8080 carry brackets
	if strings.Contains(host, "[") {
		closeBracketIdx := strings.Index(host, "]")
		if closeBracketIdx == -1 || colonIdx < closeBracketIdx {
			return host
		}
		port := host[colonIdx+1:]
		hostPart := host[:colonIdx]

		if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
			return hostPart
		}
		return host
	}

	port := host[colonIdx+1:]
	hostPart := host[:colonIdx]

	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return hostPart
	}

	return host
}
