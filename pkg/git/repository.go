package git

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// refFilePerm is the mode of loose ref files written by CreateBranch.
const refFilePerm = 0o644

// searchPrefixes is the order in which short names are tried, as git rev-parse does.
var searchPrefixes = []string{
	"",
	"refs/",
	"refs/tags/",
	"refs/heads/",
	"refs/remotes/",
}

// Repository is an open repository. It implements types.RepositoryHandle and
// must not be shared between requests.
type Repository struct {
	path    string
	fs      billy.Filesystem
	storage *filesystem.Storage
	repo    *git.Repository
}

// Path returns the directory the repository was opened from.
func (r *Repository) Path() string {
	return r.path
}

// Storer returns the storage for protocol sessions.
func (r *Repository) Storer() storer.Storer {
	return r.storage
}

// Close releases open pack files.
func (r *Repository) Close() error {
	if err := r.storage.Close(); err != nil {
		return types.IOError("git.close", err)
	}

	return nil
}

// ResolveRef resolves nameOrID to a commit id. A 40 hex digit id is accepted
// when the object exists; otherwise the name is tried verbatim and then under
// refs/, refs/tags/, refs/heads/ and refs/remotes/. Annotated tags are peeled.
func (r *Repository) ResolveRef(nameOrID string) (plumbing.Hash, error) {
	name := strings.TrimSpace(nameOrID)
	if name == "" {
		return plumbing.ZeroHash, types.Wrap(types.ErrBranchNotFound, "git.resolve", "empty name", nil)
	}

	if plumbing.IsHash(name) {
		id := plumbing.NewHash(name)

		peeled, err := r.peel(id)
		if err == nil {
			return peeled, nil
		}

		if !types.IsNotFound(err) {
			return plumbing.ZeroHash, err
		}
	}

	if name != plumbing.HEAD.String() && branchNameViolation(name) != "" {
		return plumbing.ZeroHash, types.Wrap(types.ErrBranchNotFound, "git.resolve", name, nil)
	}

	for _, prefix := range searchPrefixes {
		if prefix == "" && !strings.HasPrefix(name, "refs/") && !isPseudoRef(name) {
			continue
		}

		ref, err := storer.ResolveReference(r.storage, plumbing.ReferenceName(prefix+name))
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			continue
		}

		if err != nil {
			return plumbing.ZeroHash, types.IOError("git.resolve", err)
		}

		return r.peel(ref.Hash())
	}

	return plumbing.ZeroHash, types.Wrap(types.ErrBranchNotFound, "git.resolve", name, nil)
}

// SymbolicHead returns the ref HEAD points at when HEAD is symbolic.
func (r *Repository) SymbolicHead() (string, bool, error) {
	head, err := r.storage.Reference(plumbing.HEAD)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, types.IOError("git.head", err)
	}

	if head.Type() != plumbing.SymbolicReference {
		return "", false, nil
	}

	return head.Target().String(), true, nil
}

// HeadObjectID returns the id HEAD resolves to. An unborn HEAD reports false.
func (r *Repository) HeadObjectID() (plumbing.Hash, bool, error) {
	head, err := storer.ResolveReference(r.storage, plumbing.HEAD)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, false, nil
	}

	if err != nil {
		return plumbing.ZeroHash, false, types.IOError("git.head", err)
	}

	if head.Hash().IsZero() {
		return plumbing.ZeroHash, false, nil
	}

	return head.Hash(), true, nil
}

// ListHeadRefs returns all branches sorted by full ref name. Symbolic branch
// refs are resolved; dangling ones are skipped.
func (r *Repository) ListHeadRefs() ([]types.Ref, error) {
	iter, err := r.storage.IterReferences()
	if err != nil {
		return nil, types.IOError("git.list_heads", err)
	}
	defer iter.Close()

	refs := []types.Ref{}

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsBranch() {
			return nil
		}

		if ref.Type() == plumbing.SymbolicReference {
			resolved, err := storer.ResolveReference(r.storage, ref.Name())
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				return nil
			}

			if err != nil {
				return err
			}

			ref = plumbing.NewHashReference(ref.Name(), resolved.Hash())
		}

		refs = append(refs, types.Ref{Name: ref.Name().String(), ID: ref.Hash()})

		return nil
	})
	if err != nil {
		return nil, types.IOError("git.list_heads", err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	return refs, nil
}

// ParseCommit loads the commit with the given id.
func (r *Repository) ParseCommit(id plumbing.Hash) (types.Commit, error) {
	commit, err := r.commit(id)
	if err != nil {
		return types.Commit{}, err
	}

	return toCommit(commit), nil
}

// Log returns up to limit commits reachable from from, newest committer time
// first across all parents. A limit of zero or less walks the whole history.
func (r *Repository) Log(from plumbing.Hash, limit int) ([]types.Commit, error) {
	start, err := r.commit(from)
	if err != nil {
		return nil, err
	}

	iter := object.NewCommitIterCTime(start, nil, nil)
	defer iter.Close()

	commits := []types.Commit{}

	err = iter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}

		commits = append(commits, toCommit(c))

		return nil
	})
	if err != nil {
		return nil, translateObjectError("git.log", err)
	}

	return commits, nil
}

// ListTreeEntries returns the entries of the tree with the given id.
func (r *Repository) ListTreeEntries(treeID plumbing.Hash) ([]types.TreeEntryRecord, error) {
	tree, err := object.GetTree(r.storage, treeID)
	if err != nil {
		return nil, translateObjectError("git.tree", err)
	}

	records := make([]types.TreeEntryRecord, 0, len(tree.Entries))

	for _, entry := range tree.Entries {
		kind := types.KindFile
		if entry.Mode == filemode.Dir || entry.Mode == filemode.Submodule {
			kind = types.KindDirectory
		}

		records = append(records, types.TreeEntryRecord{
			Name: entry.Name,
			ID:   entry.Hash,
			Kind: kind,
		})
	}

	return records, nil
}

// BlobSize returns the size of a blob from its object header.
func (r *Repository) BlobSize(id plumbing.Hash) (int64, error) {
	obj, err := r.storage.EncodedObject(plumbing.BlobObject, id)
	if err != nil {
		return 0, translateObjectError("git.blob_size", err)
	}

	return obj.Size(), nil
}

// ReadBlob returns the contents of a blob.
func (r *Repository) ReadBlob(id plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(r.storage, id)
	if err != nil {
		return nil, translateObjectError("git.blob", err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return nil, types.IOError("git.blob", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, types.IOError("git.blob", err)
	}

	return data, nil
}

// CreateBranch creates refs/heads/<name> pointing at target. The loose ref
// file is created with O_EXCL, so a concurrent creator of the same branch
// fails with ErrBranchExists instead of overwriting it.
func (r *Repository) CreateBranch(name string, target plumbing.Hash) error {
	if err := ValidateBranchName(name); err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(name)

	_, err := r.storage.Reference(refName)
	if err == nil {
		return types.Wrap(types.ErrBranchExists, "git.create_branch", name, nil)
	}

	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return types.IOError("git.create_branch", err)
	}

	if _, err := r.commit(target); err != nil {
		return err
	}

	file, err := r.fs.OpenFile(path.Clean(refName.String()), os.O_WRONLY|os.O_CREATE|os.O_EXCL, refFilePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return types.Wrap(types.ErrBranchExists, "git.create_branch", name, nil)
		}

		return types.IOError("git.create_branch", err)
	}

	_, writeErr := fmt.Fprintln(file, target.String())
	closeErr := file.Close()

	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = r.fs.Remove(refName.String())

		return types.IOError("git.create_branch", err)
	}

	return nil
}

func (r *Repository) commit(id plumbing.Hash) (*object.Commit, error) {
	commit, err := object.GetCommit(r.storage, id)
	if err != nil {
		return nil, translateObjectError("git.commit", err)
	}

	return commit, nil
}

// peel follows annotated tags down to the commit they point at.
func (r *Repository) peel(id plumbing.Hash) (plumbing.Hash, error) {
	for {
		obj, err := r.storage.EncodedObject(plumbing.AnyObject, id)
		if err != nil {
			return plumbing.ZeroHash, translateObjectError("git.resolve", err)
		}

		switch obj.Type() {
		case plumbing.CommitObject:
			return id, nil
		case plumbing.TagObject:
			tag, err := object.DecodeTag(r.storage, obj)
			if err != nil {
				return plumbing.ZeroHash, types.IOError("git.resolve", err)
			}

			id = tag.Target
		default:
			return plumbing.ZeroHash, types.Wrap(types.ErrBranchNotFound, "git.resolve", id.String()+" is not a commit", nil)
		}
	}
}

// isPseudoRef reports whether name looks like HEAD, ORIG_HEAD and friends,
// the only bare names looked up at the top of the repository.
func isPseudoRef(name string) bool {
	for _, r := range name {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}

	return name != ""
}

func translateObjectError(op string, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return types.Wrap(types.ErrObjectNotFound, op, "", err)
	}

	return types.IOError(op, err)
}

func toCommit(c *object.Commit) types.Commit {
	message := strings.TrimRight(c.Message, "\n")

	return types.Commit{
		ID:           c.Hash,
		TreeID:       c.TreeHash,
		Hash:         c.Hash.String(),
		ShortHash:    types.ShortID(c.Hash),
		AuthorName:   c.Author.Name,
		AuthorEmail:  c.Author.Email,
		AuthoredAt:   c.Author.When,
		Message:      message,
		ShortMessage: shortMessage(message),
	}
}

// shortMessage returns the first paragraph of a commit message on one line.
func shortMessage(message string) string {
	paragraph, _, _ := strings.Cut(strings.TrimLeft(message, "\n"), "\n\n")

	return strings.Join(strings.Fields(strings.ReplaceAll(paragraph, "\n", " ")), " ")
}
