package browse

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// DefaultCommitLimit caps commit logs when the caller asks for no limit.
const DefaultCommitLimit = 50

// Opener opens repositories by raw name. repository.Manager implements it.
type Opener interface {
	Open(name string) (types.RepositoryHandle, error)
}

// Summary describes a repository for listings.
type Summary struct {
	Name          string        `json:"name"`
	Empty         bool          `json:"empty"`
	DefaultBranch string        `json:"defaultBranch,omitempty"`
	BranchCount   int           `json:"branchCount"`
	HeadCommit    *types.Commit `json:"headCommit,omitempty"`
}

// Service answers browsing queries. Every method opens its own handle and
// closes it before returning.
type Service struct {
	repos     Opener
	preferred []string
}

// NewService creates a Service.
//
// Parameters:
//   - repos: Opens repositories by name.
//   - preferred: Preferred default branch names; nil selects DefaultPreferredBranches.
//
// Returns:
//   - *Service: Safe for concurrent use.
func NewService(repos Opener, preferred []string) *Service {
	if len(preferred) == 0 {
		preferred = DefaultPreferredBranches
	}

	return &Service{repos: repos, preferred: preferred}
}

// Branches lists the branches of a repository with their latest commit.
func (s *Service) Branches(name string) ([]types.BranchSummary, error) {
	var summaries []types.BranchSummary

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		heads, err := h.ListHeadRefs()
		if err != nil {
			return err
		}

		defaultName := ""
		if ref, err := DefaultBranch(h, s.preferred); err == nil {
			defaultName = ref.Name
		} else if !types.IsNotFound(err) {
			return err
		}

		summaries = make([]types.BranchSummary, 0, len(heads))

		for _, ref := range heads {
			commit, err := h.ParseCommit(ref.ID)
			if err != nil {
				return err
			}

			summaries = append(summaries, types.BranchSummary{
				ShortName:         ref.ShortName(),
				Name:              ref.Name,
				IsDefault:         ref.Name == defaultName,
				LastCommitID:      commit.Hash,
				LastCommitShortID: commit.ShortHash,
				LastCommitMessage: commit.ShortMessage,
				LastCommitDate:    commit.AuthoredAt,
			})
		}

		return nil
	})

	return summaries, err
}

// DefaultBranch returns the short name of the repository's default branch.
func (s *Service) DefaultBranch(name string) (string, error) {
	var branch string

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		ref, err := DefaultBranch(h, s.preferred)
		if err != nil {
			return err
		}

		branch = plumbing.ReferenceName(ref.Name).Short()

		return nil
	})

	return branch, err
}

// CommitLog returns up to limit commits reachable from branch, newest first.
// An empty branch selects the default branch; a limit of zero or less selects
// DefaultCommitLimit.
func (s *Service) CommitLog(name, branch string, limit int) ([]types.Commit, error) {
	if limit <= 0 {
		limit = DefaultCommitLimit
	}

	var commits []types.Commit

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		id, err := Resolve(h, branch, s.preferred)
		if err != nil {
			return err
		}

		commits, err = h.Log(id, limit)

		return err
	})

	return commits, err
}

// FileList lists a directory of branch.
func (s *Service) FileList(name, branch, dir string) ([]types.TreeEntry, error) {
	var entries []types.TreeEntry

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		id, err := Resolve(h, branch, s.preferred)
		if err != nil {
			return err
		}

		entries, err = ListDirectory(h, id, dir)

		return err
	})

	return entries, err
}

// FileInfo describes one path of branch.
func (s *Service) FileInfo(name, branch, file string) (types.TreeEntry, error) {
	var entry types.TreeEntry

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		id, err := Resolve(h, branch, s.preferred)
		if err != nil {
			return err
		}

		entry, err = EntryInfo(h, id, file)

		return err
	})

	return entry, err
}

// FileContent returns the bytes of a file of branch.
func (s *Service) FileContent(name, branch, file string) ([]byte, error) {
	var data []byte

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		id, err := Resolve(h, branch, s.preferred)
		if err != nil {
			return err
		}

		data, err = ReadFile(h, id, file)

		return err
	})

	return data, err
}

// File returns the metadata and bytes of a file of branch from a single
// handle, so both describe the same commit.
func (s *Service) File(name, branch, file string) (types.TreeEntry, []byte, error) {
	var (
		entry types.TreeEntry
		data  []byte
	)

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		id, err := Resolve(h, branch, s.preferred)
		if err != nil {
			return err
		}

		entry, data, err = ReadEntry(h, id, file)

		return err
	})

	return entry, data, err
}

// IsEmpty reports whether a repository has no commits on any branch.
func (s *Service) IsEmpty(name string) (bool, error) {
	var empty bool

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		var err error

		empty, err = isEmpty(h)

		return err
	})

	return empty, err
}

// CreateBranch creates newBranch at the commit from resolves to. An empty from
// selects the default branch.
func (s *Service) CreateBranch(name, from, newBranch string) error {
	return s.withHandle(name, func(h types.RepositoryHandle) error {
		id, err := Resolve(h, from, s.preferred)
		if err != nil {
			return err
		}

		if err := h.CreateBranch(strings.TrimSpace(newBranch), id); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"repository": name,
			"branch":     newBranch,
			"from":       types.ShortID(id),
		}).Info("Created branch")

		return nil
	})
}

// Summarize gathers the repository overview shown in listings.
func (s *Service) Summarize(name string) (Summary, error) {
	summary := Summary{Name: name}

	err := s.withHandle(name, func(h types.RepositoryHandle) error {
		heads, err := h.ListHeadRefs()
		if err != nil {
			return err
		}

		summary.BranchCount = len(heads)

		summary.Empty, err = isEmpty(h)
		if err != nil || summary.Empty {
			return err
		}

		ref, err := DefaultBranch(h, s.preferred)
		if types.IsNotFound(err) {
			return nil
		}

		if err != nil {
			return err
		}

		commit, err := h.ParseCommit(ref.ID)
		if err != nil {
			return err
		}

		summary.DefaultBranch = plumbing.ReferenceName(ref.Name).Short()
		summary.HeadCommit = &commit

		return nil
	})

	return summary, err
}

func (s *Service) withHandle(name string, fn func(types.RepositoryHandle) error) error {
	handle, err := s.repos.Open(name)
	if err != nil {
		return err
	}

	defer func() {
		if err := handle.Close(); err != nil {
			logrus.WithError(err).WithField("repository", name).Warn("Failed to close repository")
		}
	}()

	return fn(handle)
}

// isEmpty reports true when there are no branches, or when neither HEAD nor
// any branch points at a commit.
func isEmpty(h types.RepositoryHandle) (bool, error) {
	heads, err := h.ListHeadRefs()
	if err != nil {
		return false, err
	}

	if len(heads) == 0 {
		return true, nil
	}

	_, ok, err := h.HeadObjectID()
	if err != nil || ok {
		return false, err
	}

	for _, ref := range heads {
		if !ref.ID.IsZero() {
			return false, nil
		}
	}

	return true, nil
}
