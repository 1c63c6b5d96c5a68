// Package inventory provides an HTTP handler that runs a storage inventory scan
// on demand. It shares its lock with the scheduled scans so at most one scan
// runs at a time.
//
// Usage example:
//
//	handler := inventory.New(scanFn, lock)
//	router.Post(handler.Path, handler.Handle)
//
// The package uses a channel-based lock for concurrency and logrus for logging requests.
package inventory
