package inventory

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/metrics"
)

// DefaultPath is the endpoint triggering a scan.
const DefaultPath = "/api/inventory"

// retryAfterSeconds is suggested to clients that hit a running scan.
const retryAfterSeconds = "30"

// ScanFunc runs one inventory scan and records its result.
type ScanFunc func() (*metrics.Inventory, error)

// Handler triggers inventory scans via HTTP.
type Handler struct {
	Path string
	scan ScanFunc
	lock chan bool // Holds a token while no scan runs.
	now  func() time.Time
}

// Response is the body returned after a completed scan.
type Response struct {
	Repositories int    `json:"repositories"`
	Bytes        int64  `json:"bytes"`
	DisplaySize  string `json:"displaySize"`
	DurationMs   int64  `json:"durationMs"`
	Timestamp    string `json:"timestamp"`
}

// New creates a Handler.
//
// Parameters:
//   - scan: Function running one scan.
//   - lock: Lock shared with the scheduler, or nil to create a private one.
//
// Returns:
//   - *Handler: Handler serving DefaultPath.
func New(scan ScanFunc, lock chan bool) *Handler {
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true

		logrus.Debug("Initialized new inventory lock channel")
	}

	return &Handler{
		Path: DefaultPath,
		scan: scan,
		lock: lock,
		now:  time.Now,
	}
}

// Handle runs a scan and reports its totals. It answers 429 when another scan
// holds the lock, since a second concurrent scan would measure the same thing.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})

		return
	}

	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		logrus.WithError(err).Debug("Failed to read request body")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read request body"})

		return
	}

	select {
	case token := <-h.lock:
		defer func() { h.lock <- token }()
	default:
		logrus.Debug("Skipped inventory scan, another scan is already running")

		w.Header().Set("Retry-After", retryAfterSeconds)
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":     "another inventory scan is already running",
			"timestamp": h.now().UTC().Format(time.RFC3339),
		})

		return
	}

	logrus.Info("Running inventory scan on request")

	start := h.now()

	result, err := h.scan()
	if err != nil {
		logrus.WithError(err).Error("Inventory scan failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "inventory scan failed"})

		return
	}

	writeJSON(w, http.StatusOK, Response{
		Repositories: result.Repositories,
		Bytes:        result.Bytes,
		DisplaySize:  humanize.IBytes(uint64(max(result.Bytes, 0))),
		DurationMs:   h.now().Sub(start).Milliseconds(),
		Timestamp:    h.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to write inventory response")
	}
}
