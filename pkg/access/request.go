package access

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the authenticated user name.
func WithPrincipal(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, principalKey{}, user)
}

// Principal returns the authenticated user name carried by ctx, or "".
func Principal(ctx context.Context) string {
	user, _ := ctx.Value(principalKey{}).(string)

	return user
}

// Request carries the request signals the resolver and auditor need, detached
// from any transport type.
type Request struct {
	Target        string // Request path.
	Query         string // Raw query string.
	User          string // Authenticated principal, empty when anonymous.
	ClientAddress string // Best-effort client address.
	UserAgent     string
}

// TargetDescriptor implements RequestSignals.
func (r Request) TargetDescriptor() string {
	return r.Target
}

// QueryMarkers implements RequestSignals.
func (r Request) QueryMarkers() string {
	return r.Query
}

// FromHTTP extracts a Request from an HTTP request. The principal is read from
// the request context (see WithPrincipal).
func FromHTTP(r *http.Request) Request {
	return Request{
		Target:        r.URL.Path,
		Query:         r.URL.RawQuery,
		User:          Principal(r.Context()),
		ClientAddress: ClientAddress(r),
		UserAgent:     r.UserAgent(),
	}
}

// ClientAddress returns the first X-Forwarded-For entry, then X-Real-IP, then
// the host part of the socket address.
func ClientAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
