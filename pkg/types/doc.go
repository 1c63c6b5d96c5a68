// Package types defines the shared model and interfaces of minigit.
// It provides the error taxonomy, the browsing model and the object store abstraction.
//
// Key components:
//   - Error: Classified failure (validation, not found, conflict, io, internal).
//   - ObjectStore: Opens and initialises repositories.
//   - RepositoryHandle: Scoped read and ref-creation access to one repository.
//   - Commit, TreeEntry, BranchSummary: Browsing results.
//   - AuditEvent, Operation: Access auditing records.
//
// Usage example:
//
//	handle, err := store.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer handle.Close()
//
//	id, err := handle.ResolveRef("main")
//	if errors.Is(err, types.ErrBranchNotFound) {
//	    // ...
//	}
//
// Implementations live in pkg/git; pkg/types/mocks holds a testify mock.
package types
