package browse

import (
	"errors"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// headsPrefix is the namespace of branch refs.
const headsPrefix = "refs/heads/"

// DefaultPreferredBranches is the preferred-name list used when none is configured.
var DefaultPreferredBranches = []string{"main", "master"}

// Resolve turns a requested ref into a commit id.
//
// A non-empty request is resolved verbatim and, if that fails and it is not a
// fully qualified ref, retried under refs/heads/. An empty request selects the
// default branch.
//
// Parameters:
//   - handle: Open repository.
//   - requested: Branch, tag, full ref name or commit id. May be empty.
//   - preferred: Preferred default branch names in priority order.
//
// Returns:
//   - plumbing.Hash: Commit id.
//   - error: ErrBranchNotFound, ErrRepositoryEmpty or an IO error.
func Resolve(handle types.RepositoryHandle, requested string, preferred []string) (plumbing.Hash, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		ref, err := DefaultBranch(handle, preferred)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		return ref.ID, nil
	}

	id, err := handle.ResolveRef(requested)
	if err == nil || !errors.Is(err, types.ErrBranchNotFound) || strings.HasPrefix(requested, "refs/") {
		return id, err
	}

	return handle.ResolveRef(headsPrefix + requested)
}

// DefaultBranch selects the branch a repository presents by default.
//
// Selection order:
//  1. HEAD's target when HEAD is symbolic and the target resolves.
//  2. The first preferred branch pointing at HEAD's commit.
//  3. The first branch, by ref name, pointing at HEAD's commit.
//  4. The first preferred branch that exists.
//
// Returns:
//   - types.Ref: Full ref name and commit id of the default branch.
//   - error: ErrRepositoryEmpty when there are no branches at all,
//     ErrBranchNotFound when branches exist but none qualifies.
func DefaultBranch(handle types.RepositoryHandle, preferred []string) (types.Ref, error) {
	heads, err := handle.ListHeadRefs()
	if err != nil {
		return types.Ref{}, err
	}

	byName := make(map[string]plumbing.Hash, len(heads))
	for _, ref := range heads {
		byName[ref.Name] = ref.ID
	}

	target, symbolic, err := handle.SymbolicHead()
	if err != nil {
		return types.Ref{}, err
	}

	if symbolic {
		if id, ok := byName[target]; ok {
			return types.Ref{Name: target, ID: id}, nil
		}

		if !strings.HasPrefix(target, headsPrefix) {
			id, err := handle.ResolveRef(target)
			if err == nil {
				return types.Ref{Name: target, ID: id}, nil
			}

			if !types.IsNotFound(err) {
				return types.Ref{}, err
			}
		}
	}

	headID, ok, err := handle.HeadObjectID()
	if err != nil {
		return types.Ref{}, err
	}

	if ok {
		for _, name := range preferred {
			if id, found := byName[headsPrefix+name]; found && id == headID {
				return types.Ref{Name: headsPrefix + name, ID: id}, nil
			}
		}

		// heads is sorted by name, which makes the tie-break deterministic.
		for _, ref := range heads {
			if ref.ID == headID {
				return ref, nil
			}
		}
	}

	for _, name := range preferred {
		if id, found := byName[headsPrefix+name]; found {
			return types.Ref{Name: headsPrefix + name, ID: id}, nil
		}
	}

	if len(heads) == 0 {
		return types.Ref{}, types.Wrap(types.ErrRepositoryEmpty, "browse.default_branch", "", nil)
	}

	return types.Ref{}, types.Wrap(types.ErrBranchNotFound, "browse.default_branch", "no default branch", nil)
}
