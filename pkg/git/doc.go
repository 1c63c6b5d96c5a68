// Package git implements the object store on top of go-git.
//
// Store opens bare repositories from disk with filesystem storage over an
// osfs billy filesystem and initialises new ones. Repository is the per-call
// handle: ref resolution, commit and tree parsing, blob access and atomic
// branch creation. Handles are not safe for sharing; open one per request and
// close it when done.
//
// Key components:
//   - Store: types.ObjectStore implementation.
//   - Repository: types.RepositoryHandle implementation.
//   - ValidateBranchName: git ref name rules for branch names.
//
// Usage example:
//
//	store := git.NewStore()
//	handle, err := store.Open("/srv/repos/project.git")
//	if err != nil {
//	    return err
//	}
//	defer handle.Close()
//
//	refs, err := handle.ListHeadRefs()
//
// The gittest subpackage builds repositories with known content for tests.
package git
