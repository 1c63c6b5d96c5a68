// Package api provides the HTTP server for minigit's endpoints.
// Its subpackages serve the REST browsing API, the smart HTTP git protocol,
// health, metrics and on-demand inventory scans.
//
// Key components:
//   - API: Manages router setup and endpoint registration.
//   - RequireBasicAuth: Optional HTTP Basic authentication feeding the audit principal.
//   - RunHTTPServer: Runs a server until its context is cancelled.
//
// Usage example:
//
//	httpAPI := api.New(":8080", api.WithMiddlewares(api.RequireBasicAuth("admin", "secret", "/health")))
//	httpAPI.Mount("/api/repos", repos.New(manager, service, classifier).Routes())
//	if err := httpAPI.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
//
// The package routes with go-chi, supports graceful shutdown,
// and integrates with logrus for logging server operations.
package api
