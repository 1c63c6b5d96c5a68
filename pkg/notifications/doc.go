// Package notifications sends messages about repository activity through shoutrrr.
//
// A Notifier implements types.AuditSink and sends a message for each completed
// push to the configured service URLs. Messages are rendered from a
// text/template and delivered on a background goroutine so protocol requests
// never wait for a remote service.
//
// Usage example:
//
//	n, err := notifications.NewNotifier(urls, "minigit", "")
//	if err != nil {
//		return err
//	}
//	defer n.Close()
//	gitHandler := smart.New(resolver, smart.WithPushSink(n))
package notifications
