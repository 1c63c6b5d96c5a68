// Package access classifies and audits protocol access to repositories.
//
// Key components:
//   - ClassifyOperation: Maps request signals to FETCH, PUSH or INFO_REFS.
//   - Request, FromHTTP: Transport-independent request signals.
//   - Auditor: One structured log entry per access, forwarded to sinks.
//   - Resolver: Opens the targeted repository and records the audit event.
//
// Usage example:
//
//	auditor := access.NewAuditor(access.WithSinks(metrics.Default()))
//	resolver := access.NewResolver(manager, auditor)
//
//	handle, err := resolver.Open(access.FromHTTP(r), chi.URLParam(r, "repo"))
//	if err != nil {
//	    http.NotFound(w, r)
//	    return
//	}
//	defer handle.Close()
package access
