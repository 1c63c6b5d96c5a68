package repos

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// GitPrefix is the route prefix of the smart HTTP endpoints.
const GitPrefix = "/git/"

// CloneURL returns the URL a client uses to clone name through the server
// that received r.
func CloneURL(r *http.Request, name string) string {
	return BaseURL(r) + GitPrefix + name
}

// BaseURL rebuilds the externally visible scheme, host and port of r. The
// X-Forwarded-Proto, X-Forwarded-Host and X-Forwarded-Port headers take
// precedence over the connection. Default ports are omitted.
func BaseURL(r *http.Request) string {
	scheme := firstHeader(r, "X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}

	host := firstHeader(r, "X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}

	hostname, port := splitHost(host)

	if forwarded, err := strconv.Atoi(firstHeader(r, "X-Forwarded-Port")); err == nil && forwarded > 0 {
		port = forwarded
	}

	standard := (strings.EqualFold(scheme, "http") && port == 80) ||
		(strings.EqualFold(scheme, "https") && port == 443)

	if port > 0 && !standard {
		return scheme + "://" + net.JoinHostPort(hostname, strconv.Itoa(port))
	}

	if strings.Contains(hostname, ":") {
		hostname = "[" + hostname + "]"
	}

	return scheme + "://" + hostname
}

// splitHost separates an optional port from host, accepting bracketed IPv6
// literals. A missing or malformed port yields zero.
func splitHost(host string) (string, int) {
	name, rawPort, err := net.SplitHostPort(host)
	if err != nil {
		return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]"), 0
	}

	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return host, 0
	}

	return name, port
}

// firstHeader returns the first comma-separated value of a header, trimmed.
func firstHeader(r *http.Request, name string) string {
	value, _, _ := strings.Cut(r.Header.Get(name), ",")

	return strings.TrimSpace(value)
}
