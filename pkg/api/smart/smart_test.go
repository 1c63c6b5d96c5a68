package smart_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/klauspost/compress/gzip"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/minigit/pkg/access"
	"github.com/nicholas-fedor/minigit/pkg/api/smart"
	gitstore "github.com/nicholas-fedor/minigit/pkg/git"
	"github.com/nicholas-fedor/minigit/pkg/git/gittest"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

type recordingSink struct {
	mu     sync.Mutex
	events []types.AuditEvent
}

func (s *recordingSink) Observe(event types.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
}

func (s *recordingSink) Events() []types.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]types.AuditEvent(nil), s.events...)
}

var _ = ginkgo.Describe("the smart HTTP handler", func() {
	var (
		manager *repository.Manager
		head    plumbing.Hash
		audits  *recordingSink
		pushes  *recordingSink
		server  *httptest.Server
	)

	setup := func(opts ...smart.Option) {
		auditor := access.NewAuditor(access.WithSinks(audits))
		handler := smart.New(access.NewResolver(manager, auditor), append(opts, smart.WithPushSink(pushes))...)

		router := chi.NewRouter()
		router.Mount(handler.Path, handler.Routes())

		server = httptest.NewServer(router)
		ginkgo.DeferCleanup(server.Close)
	}

	get := func(path string) *http.Response {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+path, nil)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		resp, err := http.DefaultClient.Do(req)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		ginkgo.DeferCleanup(resp.Body.Close)

		return resp
	}

	post := func(path string, body io.Reader) *http.Response {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL+path, body)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		resp, err := http.DefaultClient.Do(req)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		ginkgo.DeferCleanup(resp.Body.Close)

		return resp
	}

	ginkgo.BeforeEach(func() {
		root := ginkgo.GinkgoT().TempDir()
		manager = repository.NewManager(root, "main", gitstore.NewStore())
		audits = &recordingSink{}
		pushes = &recordingSink{}

		_, err := manager.Create("demo")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		builder := gittest.Open(ginkgo.GinkgoT(), filepath.Join(root, "demo.git"))
		head = builder.CommitFiles(map[string]string{"README.md": "# demo\n"}, "initial commit")
		builder.SetBranch("main", head)
	})

	ginkgo.Describe("ref advertisement", func() {
		ginkgo.BeforeEach(func() { setup() })

		ginkgo.It("advertises references for upload-pack", func() {
			resp := get("/git/demo.git/info/refs?service=git-upload-pack")

			gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
			gomega.Expect(resp.Header.Get("Content-Type")).To(gomega.Equal("application/x-git-upload-pack-advertisement"))
			gomega.Expect(resp.Header.Get("Cache-Control")).To(gomega.Equal("no-cache"))

			body, err := io.ReadAll(resp.Body)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(body)).To(gomega.HavePrefix("001e# service=git-upload-pack\n0000"))
			gomega.Expect(string(body)).To(gomega.ContainSubstring(head.String() + " refs/heads/main"))
		})

		ginkgo.It("audits the advertisement as a fetch", func() {
			get("/git/demo/info/refs?service=git-upload-pack")

			events := audits.Events()
			gomega.Expect(events).To(gomega.HaveLen(1))
			gomega.Expect(events[0].Repository).To(gomega.Equal("demo.git"))
			gomega.Expect(events[0].Operation).To(gomega.Equal(types.OperationFetch))
			gomega.Expect(events[0].Success).To(gomega.BeTrue())
		})

		ginkgo.It("rejects unknown services", func() {
			gomega.Expect(get("/git/demo.git/info/refs").StatusCode).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(get("/git/demo.git/info/refs?service=git-archive").StatusCode).
				To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(audits.Events()).To(gomega.BeEmpty())
		})

		ginkgo.It("answers not found for missing and invalid repositories", func() {
			gomega.Expect(get("/git/missing.git/info/refs?service=git-upload-pack").StatusCode).
				To(gomega.Equal(http.StatusNotFound))
			gomega.Expect(get("/git/bad%20name/info/refs?service=git-upload-pack").StatusCode).
				To(gomega.Equal(http.StatusNotFound))

			events := audits.Events()
			gomega.Expect(events).To(gomega.HaveLen(2))
			gomega.Expect(events[0].Success).To(gomega.BeFalse())
		})

		ginkgo.It("rejects a malformed upload-pack request", func() {
			resp := post("/git/demo.git/git-upload-pack", strings.NewReader("garbage"))
			gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("with a git client", func() {
		ginkgo.BeforeEach(func() { setup() })

		ginkgo.It("clones a repository", func() {
			repo, err := git.Clone(memory.NewStorage(), nil, &git.CloneOptions{URL: server.URL + "/git/demo"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			ref, err := repo.Head()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(ref.Hash()).To(gomega.Equal(head))

			for _, event := range audits.Events() {
				gomega.Expect(event.Operation).To(gomega.Equal(types.OperationFetch))
				gomega.Expect(event.Success).To(gomega.BeTrue())
			}

			gomega.Expect(pushes.Events()).To(gomega.BeEmpty())
		})

		ginkgo.It("accepts a push and reports it", func() {
			repo, err := git.Clone(memory.NewStorage(), memfs.New(), &git.CloneOptions{URL: server.URL + "/git/demo.git"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			worktree, err := repo.Worktree()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(util.WriteFile(worktree.Filesystem, "notes.txt", []byte("notes\n"), 0o644)).To(gomega.Succeed())

			_, err = worktree.Add("notes.txt")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			pushed, err := worktree.Commit("add notes", &git.CommitOptions{Author: &object.Signature{
				Name:  "Pusher",
				Email: "pusher@example.com",
				When:  time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
			}})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			gomega.Expect(repo.Push(&git.PushOptions{})).To(gomega.Succeed())

			handle, err := manager.Open("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			defer handle.Close()

			id, err := handle.ResolveRef("main")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(id).To(gomega.Equal(pushed))

			events := pushes.Events()
			gomega.Expect(events).To(gomega.HaveLen(1))
			gomega.Expect(events[0].ID).NotTo(gomega.BeEmpty())
			gomega.Expect(events[0].Repository).To(gomega.Equal("demo.git"))
			gomega.Expect(events[0].Operation).To(gomega.Equal(types.OperationPush))
			gomega.Expect(events[0].User).To(gomega.Equal(types.AnonymousUser))
			gomega.Expect(events[0].Refs).To(gomega.Equal([]string{"refs/heads/main"}))
			gomega.Expect(events[0].Success).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("with push disabled", func() {
		ginkgo.BeforeEach(func() { setup(smart.WithAllowPush(false)) })

		ginkgo.It("forbids receive-pack", func() {
			gomega.Expect(get("/git/demo.git/info/refs?service=git-receive-pack").StatusCode).
				To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(post("/git/demo.git/git-receive-pack", strings.NewReader("")).StatusCode).
				To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(audits.Events()).To(gomega.BeEmpty())
		})

		ginkgo.It("still serves fetches", func() {
			gomega.Expect(get("/git/demo.git/info/refs?service=git-upload-pack").StatusCode).
				To(gomega.Equal(http.StatusOK))
		})
	})
})

var _ = ginkgo.Describe("DecompressBody", func() {
	echo := smart.DecompressBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Encoding", r.Header.Get("Content-Encoding"))
		_, _ = w.Write(body)
	}))

	ginkgo.It("decodes gzip bodies", func() {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte("0009done\n"))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(zw.Close()).To(gomega.Succeed())

		req := httptest.NewRequest(http.MethodPost, "/git/demo.git/git-upload-pack", &buf)
		req.Header.Set("Content-Encoding", "gzip")

		rec := httptest.NewRecorder()
		echo.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.Equal("0009done\n"))
		gomega.Expect(rec.Header().Get("X-Encoding")).To(gomega.BeEmpty())
	})

	ginkgo.It("passes plain bodies through", func() {
		rec := httptest.NewRecorder()
		echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain")))

		gomega.Expect(rec.Body.String()).To(gomega.Equal("plain"))
	})

	ginkgo.It("rejects malformed gzip", func() {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not gzip"))
		req.Header.Set("Content-Encoding", "gzip")

		rec := httptest.NewRecorder()
		echo.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})
})
