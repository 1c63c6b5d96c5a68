package types

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// ShortIDLength is the number of hex digits used for abbreviated commit ids.
const ShortIDLength = 8

// DirectorySize is the display size reported for directories.
const DirectorySize = "-"

// EntryKind distinguishes files from directories in a tree listing.
type EntryKind string

const (
	// KindFile is a blob entry.
	KindFile EntryKind = "file"
	// KindDirectory is a tree entry. Submodule links are reported as directories.
	KindDirectory EntryKind = "directory"
)

// Ref is a named pointer to an object.
type Ref struct {
	Name string        // Full name, e.g. "refs/heads/main".
	ID   plumbing.Hash // Object the ref points to.
}

// ShortName returns the branch name without the "refs/heads/" prefix.
func (r Ref) ShortName() string {
	return plumbing.ReferenceName(r.Name).Short()
}

// Commit is the subset of commit metadata exposed to clients.
type Commit struct {
	ID           plumbing.Hash `json:"-"`
	TreeID       plumbing.Hash `json:"-"`
	Hash         string        `json:"id"`
	ShortHash    string        `json:"shortId"`
	AuthorName   string        `json:"authorName"`
	AuthorEmail  string        `json:"authorEmail"`
	AuthoredAt   time.Time     `json:"authoredAt"`
	Message      string        `json:"message"`
	ShortMessage string        `json:"shortMessage"`
}

// TreeEntryRecord is a raw tree entry as stored in the object database.
type TreeEntryRecord struct {
	Name string
	ID   plumbing.Hash
	Kind EntryKind
}

// TreeEntry is one child of a directory listing.
type TreeEntry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Kind        EntryKind `json:"kind"`
	Size        int64     `json:"size"`
	DisplaySize string    `json:"displaySize"`
}

// IsDirectory reports whether the entry is a directory.
func (e TreeEntry) IsDirectory() bool {
	return e.Kind == KindDirectory
}

// BranchSummary describes one branch of a repository.
type BranchSummary struct {
	ShortName         string    `json:"name"`
	Name              string    `json:"ref"`
	IsDefault         bool      `json:"isDefault"`
	LastCommitID      string    `json:"lastCommitId"`
	LastCommitShortID string    `json:"lastCommitShortId"`
	LastCommitMessage string    `json:"lastCommitMessage"`
	LastCommitDate    time.Time `json:"lastCommitDate"`
}

// ShortID abbreviates a hash to ShortIDLength hex digits.
func ShortID(id plumbing.Hash) string {
	return id.String()[:ShortIDLength]
}
