// Package health serves the storage health check of a minigit instance.
package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"
)

// Status values reported by the health endpoint.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// TimestampLayout is the UTC layout of Report.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

var errNotDirectory = errors.New("not a directory")

// DiskSpace describes the filesystem holding the storage directory.
type DiskSpace struct {
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"usedPercent"`
}

// Lister lists the repositories stored under the storage root.
type Lister interface {
	List() ([]string, error)
}

// Report is the JSON body of a health response.
type Report struct {
	Status    string         `json:"status"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

// Handler serves the health endpoint.
type Handler struct {
	Path    string // Route of the endpoint.
	Root    string // Storage directory holding the repositories.
	Repos   Lister // Counts repositories when storage is healthy.
	Version string // Reported build version.

	now   func() time.Time
	usage func(path string) (*disk.UsageStat, error)
}

// New creates a health handler.
//
// Parameters:
//   - root: Storage directory to check.
//   - repos: Repository lister, usually the repository manager.
//   - version: Version string included in healthy reports.
//
// Returns:
//   - *Handler: Handler mounted at /health.
func New(root string, repos Lister, version string) *Handler {
	return &Handler{
		Path:    "/health",
		Root:    root,
		Repos:   repos,
		Version: version,
		now:     time.Now,
		usage:   disk.Usage,
	}
}

// ServeHTTP writes the current report. Unhealthy storage answers 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Trace("Received health request")

	report := h.Check()

	status := http.StatusOK
	if report.Status != StatusUp {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(report); err != nil {
		logrus.WithError(err).Error("Failed to encode health response")
	}
}

// Check verifies the storage directory, reads the disk usage of its filesystem
// and counts repositories.
func (h *Handler) Check() Report {
	report := Report{
		Status:    StatusDown,
		Details:   map[string]any{},
		Timestamp: h.clock().UTC().Format(TimestampLayout),
	}

	abs, err := filepath.Abs(h.Root)
	if err != nil {
		report.Details["error"] = err.Error()

		return report
	}

	if err := checkAccess(abs); err != nil {
		logrus.WithError(err).WithField("storage", abs).Warn("Storage directory is not accessible")
		report.Details["storage"] = "Storage directory is not accessible: " + abs

		return report
	}

	space, err := h.diskSpace(abs)
	if err != nil {
		logrus.WithError(err).WithField("storage", abs).Warn("Failed to read disk usage")
		report.Details["storage"] = abs
		report.Details["diskSpace"] = "Disk usage is not readable: " + err.Error()

		return report
	}

	report.Details["diskSpace"] = space

	names, err := h.Repos.List()
	if err != nil {
		report.Details["error"] = err.Error()

		return report
	}

	report.Status = StatusUp
	report.Details["storage"] = abs
	report.Details["repositories"] = len(names)
	report.Details["version"] = h.Version

	return report
}

func (h *Handler) clock() time.Time {
	if h.now == nil {
		return time.Now()
	}

	return h.now()
}

func (h *Handler) diskSpace(dir string) (DiskSpace, error) {
	usage := h.usage
	if usage == nil {
		usage = disk.Usage
	}

	stat, err := usage(dir)
	if err != nil {
		return DiskSpace{}, fmt.Errorf("disk usage: %w", err)
	}

	return DiskSpace{
		Total:       stat.Total,
		Free:        stat.Free,
		Used:        stat.Used,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// checkAccess checks that dir exists and is readable and writable.
func checkAccess(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if !info.IsDir() {
		return errNotDirectory
	}

	if _, err := os.ReadDir(dir); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	file, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	name := file.Name()
	_ = file.Close()

	if err := os.Remove(name); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	return nil
}
