package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"text/template"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/minigit/pkg/notifications/templates"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

// queueSize is the number of rendered messages buffered ahead of the sender.
const queueSize = 16

// errNoURLs is returned when a notifier is built without service URLs.
var errNoURLs = errors.New("no notification urls configured")

// router defines the interface for sending shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// Notifier sends a notification for every successful push it observes. It is
// fed by the smart HTTP handler once receive-pack has completed.
type Notifier struct {
	Urls      []string
	Router    router
	template  *template.Template
	params    *shoutrrrTypes.Params
	messages  chan string
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// GetScheme extracts the scheme part of a shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// NewNotifier builds a notifier for the given service URLs and starts its
// sending goroutine.
//
// Parameters:
//   - urls: shoutrrr service URLs.
//   - title: Message title, skipped when empty.
//   - tplString: Message template. The default template is used when empty.
//
// Returns:
//   - *Notifier: Running notifier.
//   - error: Non-nil if the URLs or the template are invalid.
func NewNotifier(urls []string, title, tplString string) (*Notifier, error) {
	if len(urls) == 0 {
		return nil, errNoURLs
	}

	logger := log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)

	sender, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize shoutrrr notifications: %w", err)
	}

	return newNotifier(urls, sender, title, tplString)
}

func newNotifier(urls []string, r router, title, tplString string) (*Notifier, error) {
	tpl, err := parseTemplate(tplString)
	if err != nil {
		return nil, err
	}

	params := &shoutrrrTypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	n := &Notifier{
		Urls:     urls,
		Router:   r,
		template: tpl,
		params:   params,
		messages: make(chan string, queueSize),
		done:     make(chan struct{}),
	}

	go n.run()

	return n, nil
}

// parseTemplate parses tplString with the template helpers, falling back to
// the default template when it is blank.
func parseTemplate(tplString string) (*template.Template, error) {
	if strings.TrimSpace(tplString) == "" {
		tplString = defaultTemplate
	}

	tpl, err := template.New("").Funcs(templates.Funcs).Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification template: %w", err)
	}

	return tpl, nil
}

// GetNames returns the service names derived from the configured URLs.
func (n *Notifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// GetURLs returns the configured service URLs.
func (n *Notifier) GetURLs() []string {
	return n.Urls
}

// Observe implements types.AuditSink. Only successful pushes are sent; a full
// queue drops the message with a warning.
func (n *Notifier) Observe(event types.AuditEvent) {
	if event.Operation != types.OperationPush || !event.Success {
		return
	}

	msg, err := n.buildMessage(event)
	if err != nil {
		logrus.WithError(err).Warn("Failed to render notification")

		return
	}

	if msg == "" {
		logrus.Debug("Skipping notification due to empty message")

		return
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	select {
	case n.messages <- msg:
	default:
		logrus.WithField("repository", event.Repository).Warn("Notification queue full, dropping message")
	}
}

// Close stops accepting messages and waits until queued messages are sent.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.messages)
		n.mu.Unlock()

		logrus.Debug("Waiting for the notification goroutine to finish")

		<-n.done
	})
}

func (n *Notifier) buildMessage(event types.AuditEvent) (string, error) {
	var body bytes.Buffer
	if err := n.template.Execute(&body, event); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return strings.TrimSpace(body.String()), nil
}

// run sends queued messages until the queue is closed.
func (n *Notifier) run() {
	defer close(n.done)

	for msg := range n.messages {
		errs := n.Router.Send(msg, n.params)

		for i, err := range errs {
			if err == nil {
				continue
			}

			scheme := "unknown"
			if i < len(n.Urls) {
				scheme = GetScheme(n.Urls[i])
			}

			logrus.WithFields(logrus.Fields{
				"service": scheme,
				"index":   i,
			}).WithError(err).Error("Failed to send shoutrrr notification")
		}
	}
}
