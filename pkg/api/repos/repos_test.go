package repos_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/minigit/pkg/api/repos"
	"github.com/nicholas-fedor/minigit/pkg/browse"
	"github.com/nicholas-fedor/minigit/pkg/content"
	"github.com/nicholas-fedor/minigit/pkg/git"
	"github.com/nicholas-fedor/minigit/pkg/git/gittest"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

var pngBytes = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

var _ = ginkgo.Describe("the repository API", func() {
	var (
		root    string
		manager *repository.Manager
		router  chi.Router
	)

	do := func(method, target string, form url.Values) *httptest.ResponseRecorder {
		var req *http.Request
		if form != nil {
			req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		} else {
			req = httptest.NewRequest(method, target, nil)
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, into any) {
		gomega.Expect(rec.Header().Get("Content-Type")).To(gomega.Equal("application/json"))
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), into)).To(gomega.Succeed())
	}

	expectError := func(rec *httptest.ResponseRecorder, status int, code string) repos.ErrorResponse {
		gomega.Expect(rec.Code).To(gomega.Equal(status))

		var body repos.ErrorResponse
		decode(rec, &body)
		gomega.Expect(body.Error).To(gomega.Equal(code))
		gomega.Expect(body.Timestamp).To(gomega.MatchRegexp(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`))

		return body
	}

	ginkgo.BeforeEach(func() {
		root = ginkgo.GinkgoT().TempDir()
		manager = repository.NewManager(root, "main", git.NewStore())
		service := browse.NewService(manager, nil)
		handler := repos.New(manager, service, content.New(content.DefaultTables(), 0))

		router = chi.NewRouter()
		router.Mount(handler.Path, handler.Routes())
	})

	ginkgo.Describe("creating repositories", func() {
		ginkgo.It("creates a repository and returns its canonical name", func() {
			rec := do(http.MethodPost, "/api/repos", url.Values{"name": {"demo"}})

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
			gomega.Expect(rec.Header().Get("Location")).To(gomega.Equal("/api/repos/demo.git"))

			var body repos.CreatedResponse
			decode(rec, &body)
			gomega.Expect(body.Name).To(gomega.Equal("demo.git"))
			gomega.Expect(manager.Exists("demo")).To(gomega.BeTrue())
		})

		ginkgo.It("accepts the name as a query parameter", func() {
			rec := do(http.MethodPost, "/api/repos?name=demo.git", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
		})

		ginkgo.It("rejects a missing name", func() {
			body := expectError(do(http.MethodPost, "/api/repos", url.Values{"name": {"  "}}),
				http.StatusBadRequest, repos.CodeInvalidArgument)
			gomega.Expect(body.Message).To(gomega.Equal("repository name is required"))
		})

		ginkgo.It("rejects an invalid name", func() {
			expectError(do(http.MethodPost, "/api/repos", url.Values{"name": {"../evil"}}),
				http.StatusBadRequest, repos.CodeInvalidArgument)
		})

		ginkgo.It("reports a conflict for an existing repository", func() {
			do(http.MethodPost, "/api/repos", url.Values{"name": {"demo"}})

			expectError(do(http.MethodPost, "/api/repos", url.Values{"name": {"demo"}}),
				http.StatusConflict, repos.CodeConflict)
		})
	})

	ginkgo.It("lists repositories", func() {
		rec := do(http.MethodGet, "/api/repos", nil)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.MatchJSON(`[]`))

		do(http.MethodPost, "/api/repos", url.Values{"name": {"beta"}})
		do(http.MethodPost, "/api/repos", url.Values{"name": {"alpha"}})

		rec = do(http.MethodGet, "/api/repos", nil)
		gomega.Expect(rec.Body.String()).To(gomega.MatchJSON(`["alpha.git","beta.git"]`))
	})

	ginkgo.It("answers not found for a missing repository", func() {
		expectError(do(http.MethodGet, "/api/repos/missing", nil), http.StatusNotFound, repos.CodeNotFound)
		expectError(do(http.MethodGet, "/api/repos/missing/branches", nil), http.StatusNotFound, repos.CodeNotFound)
	})

	ginkgo.Describe("an empty repository", func() {
		ginkgo.BeforeEach(func() {
			_, err := manager.Create("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
		})

		ginkgo.It("summarizes as empty with a clone URL", func() {
			rec := do(http.MethodGet, "/api/repos/demo", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var body repos.RepositoryResponse
			decode(rec, &body)
			gomega.Expect(body.Name).To(gomega.Equal("demo.git"))
			gomega.Expect(body.Empty).To(gomega.BeTrue())
			gomega.Expect(body.CloneURL).To(gomega.Equal("http://example.com/git/demo.git"))
			gomega.Expect(body.Size).To(gomega.BeNumerically(">", 0))
			gomega.Expect(body.DisplaySize).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("reports REPO_EMPTY when browsing", func() {
			expectError(do(http.MethodGet, "/api/repos/demo/tree", nil), http.StatusNotFound, repos.CodeRepoEmpty)
			expectError(do(http.MethodGet, "/api/repos/demo/commits", nil), http.StatusNotFound, repos.CodeRepoEmpty)
		})

		ginkgo.It("lists no branches", func() {
			rec := do(http.MethodGet, "/api/repos/demo/branches", nil)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.MatchJSON(`[]`))
		})
	})

	ginkgo.Describe("a repository with history", func() {
		ginkgo.BeforeEach(func() {
			_, err := manager.Create("demo")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			builder := gittest.Open(ginkgo.GinkgoT(), filepath.Join(root, "demo.git"))
			first := builder.CommitFiles(map[string]string{"README.md": "# demo\n"}, "first")
			second := builder.CommitFiles(map[string]string{
				"README.md":     "# demo\n",
				"docs/guide.md": "guide\n",
				"logo.png":      pngBytes,
				"payload":       "\x00\x01\x02\x03",
			}, "second", first)
			builder.SetBranch("main", second)
		})

		ginkgo.It("summarizes the default branch and head commit", func() {
			var body repos.RepositoryResponse
			decode(do(http.MethodGet, "/api/repos/demo.git", nil), &body)

			gomega.Expect(body.Empty).To(gomega.BeFalse())
			gomega.Expect(body.DefaultBranch).To(gomega.Equal("main"))
			gomega.Expect(body.BranchCount).To(gomega.Equal(1))
			gomega.Expect(body.HeadCommit).NotTo(gomega.BeNil())
			gomega.Expect(body.HeadCommit.ShortMessage).To(gomega.Equal("second"))
		})

		ginkgo.It("lists commits with an optional limit", func() {
			var commits []types.Commit
			decode(do(http.MethodGet, "/api/repos/demo/commits", nil), &commits)
			gomega.Expect(commits).To(gomega.HaveLen(2))
			gomega.Expect(commits[0].ShortMessage).To(gomega.Equal("second"))

			decode(do(http.MethodGet, "/api/repos/demo/commits?branch=main&limit=1", nil), &commits)
			gomega.Expect(commits).To(gomega.HaveLen(1))
		})

		ginkgo.It("rejects a malformed limit", func() {
			expectError(do(http.MethodGet, "/api/repos/demo/commits?limit=-1", nil),
				http.StatusBadRequest, repos.CodeInvalidArgument)
			expectError(do(http.MethodGet, "/api/repos/demo/commits?limit=ten", nil),
				http.StatusBadRequest, repos.CodeInvalidArgument)
		})

		ginkgo.It("reports a missing branch", func() {
			expectError(do(http.MethodGet, "/api/repos/demo/commits?branch=nope", nil),
				http.StatusNotFound, repos.CodeNotFound)
		})

		ginkgo.It("lists directories", func() {
			var entries []types.TreeEntry
			decode(do(http.MethodGet, "/api/repos/demo/tree", nil), &entries)

			names := make([]string, 0, len(entries))
			for _, entry := range entries {
				names = append(names, entry.Name)
			}

			gomega.Expect(names).To(gomega.Equal([]string{"docs", "logo.png", "payload", "README.md"}))

			decode(do(http.MethodGet, "/api/repos/demo/tree?path=docs", nil), &entries)
			gomega.Expect(entries).To(gomega.HaveLen(1))
			gomega.Expect(entries[0].Path).To(gomega.Equal("docs/guide.md"))
		})

		ginkgo.It("rejects path traversal", func() {
			expectError(do(http.MethodGet, "/api/repos/demo/tree?path=../etc", nil),
				http.StatusBadRequest, repos.CodeInvalidArgument)
		})

		ginkgo.It("creates branches", func() {
			rec := do(http.MethodPost, "/api/repos/demo/branches", url.Values{"name": {"feature"}, "from": {"main"}})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))

			var branches []types.BranchSummary
			decode(do(http.MethodGet, "/api/repos/demo/branches", nil), &branches)
			gomega.Expect(branches).To(gomega.HaveLen(2))
			gomega.Expect(branches[0].ShortName).To(gomega.Equal("feature"))

			expectError(do(http.MethodPost, "/api/repos/demo/branches", url.Values{"name": {"feature"}}),
				http.StatusConflict, repos.CodeConflict)
			expectError(do(http.MethodPost, "/api/repos/demo/branches", url.Values{"from": {"main"}}),
				http.StatusBadRequest, repos.CodeInvalidArgument)
		})

		ginkgo.It("previews markdown inline", func() {
			var body repos.FileResponse
			decode(do(http.MethodGet, "/api/repos/demo/file?path=README.md&branch=main", nil), &body)

			gomega.Expect(body.Entry.Name).To(gomega.Equal("README.md"))
			gomega.Expect(body.Preview.Category).To(gomega.Equal(content.CategoryMarkdown))
			gomega.Expect(body.Preview.Inline).To(gomega.BeTrue())
			gomega.Expect(body.Text).To(gomega.Equal("# demo\n"))
			gomega.Expect(body.RawURL).To(gomega.Equal("/api/repos/demo.git/raw?branch=main&path=README.md"))
			gomega.Expect(body.DownloadURL).To(gomega.Equal("/api/repos/demo.git/raw?branch=main&download=true&path=README.md"))
		})

		ginkgo.It("previews images as data URIs", func() {
			var body repos.FileResponse
			decode(do(http.MethodGet, "/api/repos/demo/file?path=logo.png", nil), &body)

			gomega.Expect(body.Preview.Category).To(gomega.Equal(content.CategoryImage))
			gomega.Expect(body.Text).To(gomega.BeEmpty())
			gomega.Expect(body.DataURI).To(gomega.HavePrefix("data:image/png;base64,"))
		})

		ginkgo.It("does not inline binary files", func() {
			var body repos.FileResponse
			decode(do(http.MethodGet, "/api/repos/demo/file?path=payload", nil), &body)

			gomega.Expect(body.Preview.Inline).To(gomega.BeFalse())
			gomega.Expect(body.Text).To(gomega.BeEmpty())
			gomega.Expect(body.DataURI).To(gomega.BeEmpty())
		})

		ginkgo.It("rejects directories and missing files", func() {
			expectError(do(http.MethodGet, "/api/repos/demo/file?path=docs", nil),
				http.StatusBadRequest, repos.CodeInvalidArgument)
			expectError(do(http.MethodGet, "/api/repos/demo/raw?path=nope.txt", nil),
				http.StatusNotFound, repos.CodeNotFound)
		})

		ginkgo.It("serves raw content inline", func() {
			rec := do(http.MethodGet, "/api/repos/demo/raw?path=docs/guide.md", nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Header().Get("Content-Type")).To(gomega.Equal("text/markdown; charset=utf-8"))
			gomega.Expect(rec.Header().Get("Content-Disposition")).To(gomega.Equal("inline; filename=guide.md"))
			gomega.Expect(rec.Header().Get("Content-Length")).To(gomega.Equal("6"))
			gomega.Expect(rec.Body.String()).To(gomega.Equal("guide\n"))
		})

		ginkgo.It("serves raw content as an attachment on download", func() {
			rec := do(http.MethodGet, "/api/repos/demo/raw?path=payload&download=true", nil)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Header().Get("Content-Type")).To(gomega.Equal(content.OctetStream))
			gomega.Expect(rec.Header().Get("Content-Disposition")).To(gomega.Equal("attachment; filename=payload"))

			expectError(do(http.MethodGet, "/api/repos/demo/raw?path=payload&download=maybe", nil),
				http.StatusBadRequest, repos.CodeInvalidArgument)
		})
	})
})
