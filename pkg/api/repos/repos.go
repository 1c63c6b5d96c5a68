// Package repos serves the JSON repository API: creating and listing
// repositories, branches, commit logs, directory listings and file content.
package repos

import (
	"encoding/base64"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/browse"
	"github.com/nicholas-fedor/minigit/pkg/content"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

// DefaultPath is the mount point of the repository API.
const DefaultPath = "/api/repos"

// Repositories manages repositories on disk. repository.Manager implements it.
type Repositories interface {
	Create(raw string) (string, error)
	List() ([]string, error)
	Size(raw string) (int64, error)
}

// Browser answers read queries and branch creation. browse.Service
// implements it.
type Browser interface {
	Summarize(name string) (browse.Summary, error)
	Branches(name string) ([]types.BranchSummary, error)
	CommitLog(name, branch string, limit int) ([]types.Commit, error)
	FileList(name, branch, dir string) ([]types.TreeEntry, error)
	File(name, branch, file string) (types.TreeEntry, []byte, error)
	CreateBranch(name, from, newBranch string) error
}

// RepositoryResponse describes one repository.
type RepositoryResponse struct {
	browse.Summary

	CloneURL    string `json:"cloneUrl"`
	Size        int64  `json:"size"`
	DisplaySize string `json:"displaySize"`
}

// CreatedResponse acknowledges a created repository or branch.
type CreatedResponse struct {
	Name string `json:"name"`
	From string `json:"from,omitempty"`
}

// FileResponse describes a file and how it may be previewed.
type FileResponse struct {
	Entry       types.TreeEntry `json:"entry"`
	Preview     content.Preview `json:"preview"`
	Text        string          `json:"text,omitempty"`    // Content of inline text and markdown.
	DataURI     string          `json:"dataUri,omitempty"` // Content of inline images and PDFs.
	RawURL      string          `json:"rawUrl"`
	DownloadURL string          `json:"downloadUrl"`
}

// Handler serves the repository API.
type Handler struct {
	Path       string
	repos      Repositories
	browser    Browser
	classifier *content.Classifier
}

// New creates a repository API handler.
//
// Parameters:
//   - repos: Repository lifecycle, usually *repository.Manager.
//   - browser: Read queries, usually *browse.Service.
//   - classifier: Preview classifier for file endpoints.
//
// Returns:
//   - *Handler: Handler to mount at Path.
func New(repos Repositories, browser Browser, classifier *content.Classifier) *Handler {
	return &Handler{
		Path:       DefaultPath,
		repos:      repos,
		browser:    browser,
		classifier: classifier,
	}
}

// Routes returns the router serving the API relative to Path.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{name}", func(r chi.Router) {
		r.Get("/", h.summary)
		r.Get("/branches", h.branches)
		r.Post("/branches", h.createBranch)
		r.Get("/commits", h.commits)
		r.Get("/tree", h.tree)
		r.Get("/file", h.file)
		r.Get("/raw", h.raw)
	})

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	names, err := h.repos.List()
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.FormValue("name"))
	if raw == "" {
		writeErrorCode(w, http.StatusBadRequest, CodeInvalidArgument, "repository name is required")

		return
	}

	name, err := h.repos.Create(raw)
	if err != nil {
		writeError(w, r, err)

		return
	}

	w.Header().Set("Location", h.Path+"/"+name)
	writeJSON(w, http.StatusCreated, CreatedResponse{Name: name})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "name")

	summary, err := h.browser.Summarize(raw)
	if err != nil {
		writeError(w, r, err)

		return
	}

	summary.Name = repository.NormalizeName(raw)

	size, err := h.repos.Size(raw)
	if err != nil {
		logrus.WithError(err).WithField("repository", summary.Name).Debug("Failed to measure repository")
	}

	writeJSON(w, http.StatusOK, RepositoryResponse{
		Summary:     summary,
		CloneURL:    CloneURL(r, summary.Name),
		Size:        size,
		DisplaySize: humanize.IBytes(uint64(max(size, 0))),
	})
}

func (h *Handler) branches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.browser.Branches(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, nonNil(branches))
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	newBranch := strings.TrimSpace(r.FormValue("name"))
	if newBranch == "" {
		writeErrorCode(w, http.StatusBadRequest, CodeInvalidArgument, "branch name is required")

		return
	}

	from := strings.TrimSpace(r.FormValue("from"))

	if err := h.browser.CreateBranch(chi.URLParam(r, "name"), from, newBranch); err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusCreated, CreatedResponse{Name: newBranch, From: from})
}

func (h *Handler) commits(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErrorCode(w, http.StatusBadRequest, CodeInvalidArgument, "limit must be a non-negative integer")

			return
		}

		limit = parsed
	}

	commits, err := h.browser.CommitLog(chi.URLParam(r, "name"), r.URL.Query().Get("branch"), limit)
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, nonNil(commits))
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	entries, err := h.browser.FileList(chi.URLParam(r, "name"), query.Get("branch"), query.Get("path"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	writeJSON(w, http.StatusOK, nonNil(entries))
}

func (h *Handler) file(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	query := r.URL.Query()

	entry, data, err := h.browser.File(name, query.Get("branch"), query.Get("path"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	preview := h.classifier.Preview(entry.Name, data)
	resp := FileResponse{
		Entry:       entry,
		Preview:     preview,
		RawURL:      h.fileURL(name, "raw", query, false),
		DownloadURL: h.fileURL(name, "raw", query, true),
	}

	if preview.Inline {
		switch {
		case preview.Category.IsTextual():
			resp.Text = string(data)
		case preview.Category == content.CategoryImage, preview.Category == content.CategoryPDF:
			resp.DataURI = "data:" + preview.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(data)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) raw(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	attachment := false
	if raw := query.Get("download"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, CodeInvalidArgument, "download must be a boolean")

			return
		}

		attachment = parsed
	}

	entry, data, err := h.browser.File(chi.URLParam(r, "name"), query.Get("branch"), query.Get("path"))
	if err != nil {
		writeError(w, r, err)

		return
	}

	result := h.classifier.Classify(entry.Name, data)

	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("Content-Disposition", ContentDisposition(attachment, entry.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		logrus.WithError(err).Debug("Failed to write file content")
	}
}

func (h *Handler) fileURL(name, endpoint string, query url.Values, download bool) string {
	values := url.Values{}
	values.Set("path", query.Get("path"))

	if branch := query.Get("branch"); branch != "" {
		values.Set("branch", branch)
	}

	if download {
		values.Set("download", "true")
	}

	return h.Path + "/" + url.PathEscape(repository.NormalizeName(name)) + "/" + endpoint + "?" + values.Encode()
}

// ContentDisposition builds an inline or attachment disposition carrying
// fileName, encoded per RFC 2231 when it is not plain ASCII.
func ContentDisposition(attachment bool, fileName string) string {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}

	if formatted := mime.FormatMediaType(disposition, map[string]string{"filename": fileName}); formatted != "" {
		return formatted
	}

	return disposition
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
