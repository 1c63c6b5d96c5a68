// Package smart serves repositories over the git smart HTTP protocol.
//
// Each request opens its repository through the access resolver, which
// validates the name and records an audit event, and hands the repository's
// storage to a go-git protocol session for the duration of the request.
package smart

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-git/go-git/v5/plumbing/format/pktline"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/access"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

// DefaultPath is the mount point of the smart HTTP endpoints.
const DefaultPath = "/git"

// Service names accepted by the info/refs endpoint.
const (
	UploadPack  = "git-upload-pack"
	ReceivePack = "git-receive-pack"
)

var errPushDisabled = errors.New("push is disabled")

// Resolver opens the repository a request targets. access.Resolver
// implements it.
type Resolver interface {
	Open(req access.Request, rawName string) (types.RepositoryHandle, error)
}

// Handler serves git-upload-pack and git-receive-pack.
type Handler struct {
	Path      string
	resolver  Resolver
	allowPush bool
	pushSinks []types.AuditSink
}

// Option configures a Handler.
type Option func(*Handler)

// WithAllowPush enables or disables git-receive-pack. Push is allowed by default.
func WithAllowPush(allow bool) Option {
	return func(h *Handler) {
		h.allowPush = allow
	}
}

// WithPushSink registers a sink told about every completed push. Nil sinks are ignored.
func WithPushSink(sink types.AuditSink) Option {
	return func(h *Handler) {
		if sink != nil {
			h.pushSinks = append(h.pushSinks, sink)
		}
	}
}

// New creates a smart HTTP handler.
func New(resolver Resolver, opts ...Option) *Handler {
	h := &Handler{
		Path:      DefaultPath,
		resolver:  resolver,
		allowPush: true,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Routes returns the router serving the protocol relative to Path.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(DecompressBody)

	r.Get("/{name}/info/refs", h.infoRefs)
	r.Post("/{name}/"+UploadPack, h.uploadPack)
	r.Post("/{name}/"+ReceivePack, h.receivePack)

	return r
}

// staticLoader hands the already opened storage to go-git regardless of the
// endpoint it is asked for.
type staticLoader struct {
	storer storer.Storer
}

func (l staticLoader) Load(*transport.Endpoint) (storer.Storer, error) {
	return l.storer, nil
}

// session opens the repository named in the route and builds a protocol
// transport over its storage. release must be called once the response is written.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *transport.Endpoint, transport.Transport, func(), bool) {
	raw := chi.URLParam(r, "name")

	handle, err := h.resolver.Open(access.FromHTTP(r), raw)
	if err != nil {
		if types.IsNotFound(err) {
			http.Error(w, "Repository not found", http.StatusNotFound)
		} else {
			logrus.WithError(err).WithField("repository", raw).Error("Failed to open repository")
			http.Error(w, "Failed to access repository", http.StatusInternalServerError)
		}

		return "", nil, nil, nil, false
	}

	name := repository.NormalizeName(raw)

	release := func() {
		if err := handle.Close(); err != nil {
			logrus.WithError(err).WithField("repository", name).Warn("Failed to close repository")
		}
	}

	ep, err := transport.NewEndpoint("/" + name)
	if err != nil {
		release()
		http.Error(w, "Invalid repository", http.StatusBadRequest)

		return "", nil, nil, nil, false
	}

	return name, ep, server.NewServer(staticLoader{storer: handle.Storer()}), release, true
}

func (h *Handler) infoRefs(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	if service != UploadPack && service != ReceivePack {
		http.Error(w, "Invalid service", http.StatusBadRequest)

		return
	}

	if service == ReceivePack && !h.allowPush {
		h.forbid(w, r)

		return
	}

	name, ep, srv, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	var (
		advRefs *packp.AdvRefs
		err     error
	)

	if service == UploadPack {
		advRefs, err = advertise(r, func() (transport.Session, error) { return srv.NewUploadPackSession(ep, nil) })
	} else {
		advRefs, err = advertise(r, func() (transport.Session, error) { return srv.NewReceivePackSession(ep, nil) })
	}

	if err != nil {
		logrus.WithError(err).WithField("repository", name).Error("Failed to advertise references")
		http.Error(w, "Failed to get references", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/x-"+service+"-advertisement")
	w.Header().Set("Cache-Control", "no-cache")

	enc := pktline.NewEncoder(w)
	if err := enc.Encodef("# service=%s\n", service); err != nil {
		logrus.WithError(err).Debug("Failed to write service header")

		return
	}

	if err := enc.Flush(); err != nil {
		logrus.WithError(err).Debug("Failed to flush service header")

		return
	}

	if err := advRefs.Encode(w); err != nil {
		logrus.WithError(err).Debug("Failed to encode references")

		return
	}

	logrus.WithFields(logrus.Fields{
		"repository": name,
		"service":    service,
		"refs":       len(advRefs.References),
	}).Debug("Advertised references")
}

func advertise(r *http.Request, open func() (transport.Session, error)) (*packp.AdvRefs, error) {
	session, err := open()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.AdvertisedReferencesContext(r.Context())
}

func (h *Handler) uploadPack(w http.ResponseWriter, r *http.Request) {
	name, ep, srv, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	session, err := srv.NewUploadPackSession(ep, nil)
	if err != nil {
		logrus.WithError(err).WithField("repository", name).Error("Failed to start upload-pack session")
		http.Error(w, "Failed to access repository", http.StatusInternalServerError)

		return
	}
	defer session.Close()

	req := packp.NewUploadPackRequest()
	if err := req.Decode(r.Body); err != nil {
		logrus.WithError(err).WithField("repository", name).Debug("Rejected malformed upload-pack request")
		http.Error(w, "Failed to parse request", http.StatusBadRequest)

		return
	}

	resp, err := session.UploadPack(r.Context(), req)
	if err != nil {
		logrus.WithError(err).WithField("repository", name).Error("Upload-pack failed")
		http.Error(w, "Upload-pack failed", http.StatusInternalServerError)

		return
	}
	defer resp.Close()

	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	w.Header().Set("Cache-Control", "no-cache")

	if err := resp.Encode(w); err != nil {
		logrus.WithError(err).WithField("repository", name).Debug("Failed to encode upload-pack response")
	}
}

func (h *Handler) receivePack(w http.ResponseWriter, r *http.Request) {
	if !h.allowPush {
		h.forbid(w, r)

		return
	}

	start := time.Now()

	name, ep, srv, release, ok := h.session(w, r)
	if !ok {
		return
	}
	defer release()

	session, err := srv.NewReceivePackSession(ep, nil)
	if err != nil {
		logrus.WithError(err).WithField("repository", name).Error("Failed to start receive-pack session")
		http.Error(w, "Failed to access repository", http.StatusInternalServerError)

		return
	}
	defer session.Close()

	req := packp.NewReferenceUpdateRequest()
	if err := req.Decode(r.Body); err != nil {
		logrus.WithError(err).WithField("repository", name).Debug("Rejected malformed receive-pack request")
		http.Error(w, "Failed to parse request", http.StatusBadRequest)

		return
	}

	refs := make([]string, 0, len(req.Commands))
	for _, cmd := range req.Commands {
		refs = append(refs, cmd.Name.String())
	}

	report, err := session.ReceivePack(r.Context(), req)
	if err != nil && report == nil {
		logrus.WithError(err).WithField("repository", name).Error("Receive-pack failed")
		http.Error(w, "Receive-pack failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/x-git-receive-pack-result")
	w.Header().Set("Cache-Control", "no-cache")

	if report != nil {
		if encErr := report.Encode(w); encErr != nil {
			logrus.WithError(encErr).WithField("repository", name).Debug("Failed to encode receive-pack report")
		}

		if err == nil {
			err = report.Error()
		}
	}

	if err != nil {
		logrus.WithError(err).WithField("repository", name).Warn("Push rejected")

		return
	}

	logrus.WithFields(logrus.Fields{
		"repository": name,
		"refs":       strings.Join(refs, ","),
	}).Info("Push completed")

	h.notifyPush(r, types.AuditEvent{
		ID:         uuid.NewString(),
		Timestamp:  start,
		Repository: name,
		Operation:  types.OperationPush,
		Success:    true,
		Duration:   time.Since(start),
		Refs:       refs,
	})
}

func (h *Handler) notifyPush(r *http.Request, event types.AuditEvent) {
	req := access.FromHTTP(r)

	event.User = req.User
	if event.User == "" {
		event.User = types.AnonymousUser
	}

	event.ClientAddress = req.ClientAddress
	if event.ClientAddress == "" {
		event.ClientAddress = types.UnknownClient
	}

	event.UserAgent = req.UserAgent

	for _, sink := range h.pushSinks {
		sink.Observe(event)
	}
}

func (h *Handler) forbid(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"path":      r.URL.Path,
		"client_ip": access.ClientAddress(r),
	}).Debug("Rejected push to read-only server")
	http.Error(w, errPushDisabled.Error(), http.StatusForbidden)
}
