package access

import (
	"time"

	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

// RepositoryOpener opens repositories by raw name. repository.Manager
// implements it.
type RepositoryOpener interface {
	Open(name string) (types.RepositoryHandle, error)
}

// Resolver opens the repository a protocol request targets and audits the
// attempt.
type Resolver struct {
	repos   RepositoryOpener
	auditor *Auditor
}

// NewResolver creates a Resolver.
func NewResolver(repos RepositoryOpener, auditor *Auditor) *Resolver {
	return &Resolver{repos: repos, auditor: auditor}
}

// Open resolves rawName for req and opens it. Exactly one audit event is
// recorded per call, successful or not.
//
// Parameters:
//   - req: Request signals used for classification and auditing.
//   - rawName: Untrusted repository name from the request path.
//
// Returns:
//   - types.RepositoryHandle: Open handle; the caller must Close it.
//   - error: ErrRepositoryNotFound for invalid or missing repositories, or
//     the underlying error for storage failures.
func (r *Resolver) Open(req Request, rawName string) (handle types.RepositoryHandle, err error) {
	start := time.Now()
	operation := ClassifyOperation(req)
	canonical := repository.NormalizeName(rawName)

	defer func() {
		r.auditor.Record(types.AuditEvent{
			Timestamp:     start,
			Repository:    canonical,
			Operation:     operation,
			User:          req.User,
			ClientAddress: req.ClientAddress,
			UserAgent:     req.UserAgent,
			Success:       err == nil,
			Duration:      time.Since(start),
		})
	}()

	if !repository.IsValidName(rawName) {
		return nil, types.Wrap(types.ErrRepositoryNotFound, "access.open", canonical, nil)
	}

	handle, err = r.repos.Open(rawName)
	if err != nil {
		if types.IsNotFound(err) || types.IsValidation(err) {
			return nil, types.Wrap(types.ErrRepositoryNotFound, "access.open", canonical, nil)
		}

		return nil, err
	}

	return handle, nil
}
