package repos

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// Error codes carried by ErrorResponse.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeRepoEmpty       = "REPO_EMPTY"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

// TimestampLayout is the UTC layout of ErrorResponse.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

const internalMessage = "internal error"

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// statusOf maps a classified error to an HTTP status and error code.
func statusOf(err error) (int, string) {
	if errors.Is(err, types.ErrRepositoryEmpty) {
		return http.StatusNotFound, CodeRepoEmpty
	}

	switch types.KindOf(err) {
	case types.KindValidation:
		return http.StatusBadRequest, CodeInvalidArgument
	case types.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case types.KindConflict:
		return http.StatusConflict, CodeConflict
	case types.KindIO, types.KindInternal:
		return http.StatusInternalServerError, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError answers r with the status and code err maps to. Server-side
// failures are logged with their cause and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)

	message := types.MessageOf(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Repository API request failed")

		message = internalMessage
	}

	writeErrorCode(w, status, code, message)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(TimestampLayout),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Debug("Failed to encode API response")
	}
}
