package browse

import (
	"errors"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-git/v5/plumbing"
	"golang.org/x/text/cases"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// NormalizePath cleans a repository-relative path: surrounding whitespace and
// leading or trailing slashes are removed, "/" becomes the root (""). Empty,
// "." and ".." segments are rejected rather than resolved.
func NormalizePath(raw string) (string, error) {
	p := strings.Trim(strings.TrimSpace(raw), "/")
	if p == "" {
		return "", nil
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", types.Wrap(types.ErrInvalidPath, "browse.path", raw, nil)
		}
	}

	return p, nil
}

// ListDirectory lists the immediate children of a directory in a commit.
//
// Parameters:
//   - handle: Open repository.
//   - commitID: Commit whose tree is browsed.
//   - relPath: Directory path; empty lists the root.
//
// Returns:
//   - []types.TreeEntry: Directories first, then files, each group ordered by
//     case-folded name.
//   - error: ErrInvalidPath, ErrPathNotFound (missing or a file) or an IO error.
func ListDirectory(handle types.RepositoryHandle, commitID plumbing.Hash, relPath string) ([]types.TreeEntry, error) {
	clean, err := NormalizePath(relPath)
	if err != nil {
		return nil, err
	}

	commit, err := handle.ParseCommit(commitID)
	if err != nil {
		return nil, err
	}

	treeID := commit.TreeID

	if clean != "" {
		record, err := locate(handle, commit.TreeID, clean)
		if err != nil {
			return nil, err
		}

		if record.Kind != types.KindDirectory {
			return nil, types.Wrap(types.ErrPathNotFound, "browse.list", clean+" is not a directory", nil)
		}

		treeID = record.ID
	}

	records, err := listTree(handle, treeID, clean)
	if err != nil {
		return nil, err
	}

	entries := make([]types.TreeEntry, 0, len(records))

	for _, record := range records {
		entry, err := toEntry(handle, record, path.Join(clean, record.Name))
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	SortEntries(entries)

	return entries, nil
}

// EntryInfo describes a single file or directory in a commit.
//
// Returns:
//   - types.TreeEntry: The entry at relPath.
//   - error: ErrInvalidPath for an empty or root path, ErrPathNotFound when absent.
func EntryInfo(handle types.RepositoryHandle, commitID plumbing.Hash, relPath string) (types.TreeEntry, error) {
	clean, record, err := lookupEntry(handle, commitID, relPath)
	if err != nil {
		return types.TreeEntry{}, err
	}

	return toEntry(handle, record, clean)
}

// ReadFile returns the contents of a file in a commit.
//
// Returns:
//   - []byte: Raw blob content.
//   - error: As EntryInfo, plus ErrNotAFile when relPath names a directory.
func ReadFile(handle types.RepositoryHandle, commitID plumbing.Hash, relPath string) ([]byte, error) {
	clean, record, err := lookupEntry(handle, commitID, relPath)
	if err != nil {
		return nil, err
	}

	if record.Kind == types.KindDirectory {
		return nil, types.Wrap(types.ErrNotAFile, "browse.read", clean, nil)
	}

	return handle.ReadBlob(record.ID)
}

// ReadEntry describes a file of a commit and returns its contents, resolving
// relPath once.
//
// Returns:
//   - types.TreeEntry: Metadata of the file.
//   - []byte: Raw blob content.
//   - error: As ReadFile.
func ReadEntry(handle types.RepositoryHandle, commitID plumbing.Hash, relPath string) (types.TreeEntry, []byte, error) {
	clean, record, err := lookupEntry(handle, commitID, relPath)
	if err != nil {
		return types.TreeEntry{}, nil, err
	}

	if record.Kind == types.KindDirectory {
		return types.TreeEntry{}, nil, types.Wrap(types.ErrNotAFile, "browse.read", clean, nil)
	}

	entry, err := toEntry(handle, record, clean)
	if err != nil {
		return types.TreeEntry{}, nil, err
	}

	data, err := handle.ReadBlob(record.ID)
	if err != nil {
		return types.TreeEntry{}, nil, err
	}

	return entry, data, nil
}

// SortEntries orders directories before files and each group by case-folded
// name, falling back to the raw name for names that fold equal.
func SortEntries(entries []types.TreeEntry) {
	fold := cases.Fold()

	keys := make(map[string]string, len(entries))
	for _, e := range entries {
		keys[e.Name] = fold.String(e.Name)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDirectory() != b.IsDirectory() {
			return a.IsDirectory()
		}

		if keys[a.Name] != keys[b.Name] {
			return keys[a.Name] < keys[b.Name]
		}

		return a.Name < b.Name
	})
}

func lookupEntry(handle types.RepositoryHandle, commitID plumbing.Hash, relPath string) (string, types.TreeEntryRecord, error) {
	if strings.TrimSpace(relPath) == "" {
		return "", types.TreeEntryRecord{}, types.Wrap(types.ErrInvalidPath, "browse.entry", "file path must not be empty", nil)
	}

	clean, err := NormalizePath(relPath)
	if err != nil {
		return "", types.TreeEntryRecord{}, err
	}

	if clean == "" {
		return "", types.TreeEntryRecord{}, types.Wrap(types.ErrInvalidPath, "browse.entry", "path must not point to the repository root", nil)
	}

	commit, err := handle.ParseCommit(commitID)
	if err != nil {
		return "", types.TreeEntryRecord{}, err
	}

	record, err := locate(handle, commit.TreeID, clean)

	return clean, record, err
}

// locate walks clean, a normalized non-empty path, from the root tree.
func locate(handle types.RepositoryHandle, rootTree plumbing.Hash, clean string) (types.TreeEntryRecord, error) {
	segments := strings.Split(clean, "/")
	treeID := rootTree

	var current types.TreeEntryRecord

	for i, segment := range segments {
		records, err := listTree(handle, treeID, strings.Join(segments[:i], "/"))
		if err != nil {
			return types.TreeEntryRecord{}, err
		}

		found := false

		for _, record := range records {
			if record.Name == segment {
				current, found = record, true

				break
			}
		}

		if !found {
			return types.TreeEntryRecord{}, types.Wrap(types.ErrPathNotFound, "browse.locate", clean, nil)
		}

		if i < len(segments)-1 && current.Kind != types.KindDirectory {
			return types.TreeEntryRecord{}, types.Wrap(types.ErrPathNotFound, "browse.locate", clean, nil)
		}

		treeID = current.ID
	}

	return current, nil
}

// listTree lists a tree, reporting a missing tree object (e.g. a submodule
// commit) as a missing path.
func listTree(handle types.RepositoryHandle, treeID plumbing.Hash, at string) ([]types.TreeEntryRecord, error) {
	records, err := handle.ListTreeEntries(treeID)
	if errors.Is(err, types.ErrObjectNotFound) {
		return nil, types.Wrap(types.ErrPathNotFound, "browse.tree", at, err)
	}

	return records, err
}

func toEntry(handle types.RepositoryHandle, record types.TreeEntryRecord, fullPath string) (types.TreeEntry, error) {
	entry := types.TreeEntry{
		Name:        record.Name,
		Path:        fullPath,
		Kind:        record.Kind,
		DisplaySize: types.DirectorySize,
	}

	if record.Kind == types.KindDirectory {
		return entry, nil
	}

	size, err := handle.BlobSize(record.ID)
	if err != nil {
		return types.TreeEntry{}, err
	}

	entry.Size = size
	entry.DisplaySize = humanize.IBytes(uint64(size))

	return entry, nil
}
