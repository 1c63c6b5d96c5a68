package types

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// ObjectStore opens and initialises repositories on disk.
type ObjectStore interface {
	// Open opens an existing repository. It fails with ErrRepositoryNotFound
	// when path holds no repository.
	Open(path string) (RepositoryHandle, error)

	// InitBare creates a bare repository at path whose HEAD points at
	// refs/heads/<initialBranch>.
	InitBare(path, initialBranch string) error
}

// RepositoryHandle is a scoped view of one opened repository. Handles are not
// shared between calls and must be closed by the caller that opened them.
type RepositoryHandle interface {
	// ResolveRef resolves a full ref name, a short name or a hex object id to
	// a commit id. Missing refs yield ErrBranchNotFound.
	ResolveRef(nameOrID string) (plumbing.Hash, error)

	// SymbolicHead returns HEAD's target ref name when HEAD is symbolic.
	SymbolicHead() (string, bool, error)

	// HeadObjectID returns the commit HEAD resolves to, if any.
	HeadObjectID() (plumbing.Hash, bool, error)

	// ListHeadRefs returns refs under refs/heads sorted by name.
	ListHeadRefs() ([]Ref, error)

	// ParseCommit loads commit metadata.
	ParseCommit(id plumbing.Hash) (Commit, error)

	// Log walks history from id, newest first, returning at most limit commits.
	// A limit of zero or less returns everything reachable.
	Log(from plumbing.Hash, limit int) ([]Commit, error)

	// ListTreeEntries returns the entries of a tree object in stored order.
	ListTreeEntries(treeID plumbing.Hash) ([]TreeEntryRecord, error)

	// BlobSize returns the byte length of a blob without reading it.
	BlobSize(id plumbing.Hash) (int64, error)

	// ReadBlob returns the bytes of a blob.
	ReadBlob(id plumbing.Hash) ([]byte, error)

	// CreateBranch atomically creates refs/heads/<name> at target. It fails
	// with ErrBranchExists when the ref is already present.
	CreateBranch(name string, target plumbing.Hash) error

	// Storer exposes the underlying storage for protocol sessions.
	Storer() storer.Storer

	// Close releases the handle.
	Close() error
}
