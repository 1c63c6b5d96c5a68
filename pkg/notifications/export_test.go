package notifications

// Router is exported for tests in the external test package.
type Router = router

// NewTestNotifier builds a notifier around a custom router.
func NewTestNotifier(urls []string, r Router, title, tplString string) (*Notifier, error) {
	return newNotifier(urls, r, title, tplString)
}
