package notifications_test

import (
	"errors"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/minigit/pkg/notifications"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

type recordingRouter struct {
	mu       sync.Mutex
	messages []string
	titles   []string
	err      error
}

func (r *recordingRouter) Send(message string, params *shoutrrrTypes.Params) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, message)

	title, _ := params.Title()
	r.titles = append(r.titles, title)

	return []error{r.err}
}

func (r *recordingRouter) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.messages...)
}

var pushEvent = types.AuditEvent{
	Timestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	Repository:    "demo.git",
	Operation:     types.OperationPush,
	User:          "alice",
	ClientAddress: "10.0.0.1",
	UserAgent:     "git/2.43.0",
	Success:       true,
}

var _ = ginkgo.Describe("Notifier", func() {
	var router *recordingRouter

	ginkgo.BeforeEach(func() {
		router = &recordingRouter{}
	})

	ginkgo.It("sends successful pushes with the default template", func() {
		n, err := notifications.NewTestNotifier([]string{"logger://"}, router, "minigit", "")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		n.Observe(pushEvent)
		n.Close()

		gomega.Expect(router.Messages()).To(gomega.Equal([]string{
			"alice pushed to demo.git from 10.0.0.1 (git/2.43.0) at 2024-01-02T03:04:05Z",
		}))
		gomega.Expect(router.titles).To(gomega.Equal([]string{"minigit"}))
	})

	ginkgo.It("lists the updated references", func() {
		n, err := notifications.NewTestNotifier([]string{"logger://"}, router, "", "")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		event := pushEvent
		event.Refs = []string{"refs/heads/main", "refs/heads/dev"}

		n.Observe(event)
		n.Close()

		gomega.Expect(router.Messages()).To(gomega.Equal([]string{
			"alice pushed to demo.git: refs/heads/main, refs/heads/dev from 10.0.0.1 (git/2.43.0) at 2024-01-02T03:04:05Z",
		}))
	})

	ginkgo.It("ignores fetches and failed pushes", func() {
		n, err := notifications.NewTestNotifier([]string{"logger://"}, router, "", "")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		fetch := pushEvent
		fetch.Operation = types.OperationFetch

		failed := pushEvent
		failed.Success = false

		n.Observe(fetch)
		n.Observe(failed)
		n.Close()

		gomega.Expect(router.Messages()).To(gomega.BeEmpty())
	})

	ginkgo.It("renders custom templates with helpers", func() {
		n, err := notifications.NewTestNotifier(
			[]string{"logger://"}, router, "", `{{ ToUpper .Repository }} {{ .Operation }}`,
		)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		n.Observe(pushEvent)
		n.Close()

		gomega.Expect(router.Messages()).To(gomega.Equal([]string{"DEMO.GIT PUSH"}))
	})

	ginkgo.It("skips empty messages", func() {
		n, err := notifications.NewTestNotifier([]string{"logger://"}, router, "", `{{ if false }}x{{ end }}`)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		n.Observe(pushEvent)
		n.Close()

		gomega.Expect(router.Messages()).To(gomega.BeEmpty())
	})

	ginkgo.It("keeps running when a service fails", func() {
		router.err = errors.New("boom")

		n, err := notifications.NewTestNotifier([]string{"logger://"}, router, "", "")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		n.Observe(pushEvent)
		n.Observe(pushEvent)
		n.Close()

		gomega.Expect(router.Messages()).To(gomega.HaveLen(2))
	})

	ginkgo.It("rejects invalid templates", func() {
		_, err := notifications.NewTestNotifier([]string{"logger://"}, router, "", "{{ .Nope ")
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("ignores events after Close", func() {
		n, err := notifications.NewTestNotifier([]string{"logger://"}, router, "", "")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		n.Close()
		n.Close()
		n.Observe(pushEvent)

		gomega.Expect(router.Messages()).To(gomega.BeEmpty())
	})

	ginkgo.It("reports service names", func() {
		n, err := notifications.NewTestNotifier(
			[]string{"slack://token@channel", "gotify://host/token"}, router, "", "",
		)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		defer n.Close()

		gomega.Expect(n.GetNames()).To(gomega.Equal([]string{"slack", "gotify"}))
		gomega.Expect(n.GetURLs()).To(gomega.HaveLen(2))
	})

	ginkgo.Describe("NewNotifier", func() {
		ginkgo.It("requires at least one url", func() {
			_, err := notifications.NewNotifier(nil, "", "")
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("builds a sender for a logger url", func() {
			n, err := notifications.NewNotifier([]string{"logger://"}, "", "")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			n.Close()
		})
	})

	ginkgo.DescribeTable("GetScheme",
		func(url, want string) {
			gomega.Expect(notifications.GetScheme(url)).To(gomega.Equal(want))
		},
		ginkgo.Entry("slack", "slack://token@channel", "slack"),
		ginkgo.Entry("missing scheme", "no-scheme", "invalid"),
		ginkgo.Entry("leading colon", ":foo", "invalid"),
	)
})
