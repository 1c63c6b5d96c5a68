// Package gittest builds bare repositories with known content for tests.
package gittest

import (
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/stretchr/testify/require"
)

// Author is the signature used for every commit and tag.
var Author = object.Signature{
	Name:  "Test Author",
	Email: "author@example.com",
	When:  time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC),
}

// TB is the subset of testing.TB the builder needs. Both *testing.T and
// ginkgo.GinkgoT() satisfy it.
type TB interface {
	Helper()
	Cleanup(fn func())
	Errorf(format string, args ...any)
	FailNow()
}

// Builder writes objects and refs directly into a bare repository.
type Builder struct {
	t       TB
	Path    string
	storage *filesystem.Storage
	clock   time.Time
}

// NewBare initialises a bare repository at dir whose HEAD points at
// refs/heads/<initialBranch>, unborn until SetBranch is called.
func NewBare(t TB, dir, initialBranch string) *Builder {
	t.Helper()

	_, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(initialBranch)},
		Bare:        true,
	})
	require.NoError(t, err)

	return Open(t, dir)
}

// Open attaches a builder to an existing repository at dir.
func Open(t TB, dir string) *Builder {
	t.Helper()

	storage := filesystem.NewStorage(osfs.New(dir), cache.NewObjectLRUDefault())
	t.Cleanup(func() { _ = storage.Close() })

	return &Builder{t: t, Path: dir, storage: storage, clock: Author.When}
}

// Blob stores content and returns its id.
func (b *Builder) Blob(content string) plumbing.Hash {
	b.t.Helper()

	obj := b.storage.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	require.NoError(b.t, err)

	_, err = w.Write([]byte(content))
	require.NoError(b.t, err)
	require.NoError(b.t, w.Close())

	id, err := b.storage.SetEncodedObject(obj)
	require.NoError(b.t, err)

	return id
}

// Tree stores a tree for files, keyed by slash separated path, and returns
// the root tree id. Intermediate directories are created as needed.
func (b *Builder) Tree(files map[string]string) plumbing.Hash {
	b.t.Helper()

	return b.tree(files)
}

// Commit stores a commit and returns its id.
func (b *Builder) Commit(tree plumbing.Hash, message string, parents ...plumbing.Hash) plumbing.Hash {
	b.t.Helper()

	b.clock = b.clock.Add(time.Minute)

	sig := Author
	sig.When = b.clock

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := b.storage.NewEncodedObject()
	require.NoError(b.t, commit.Encode(obj))

	id, err := b.storage.SetEncodedObject(obj)
	require.NoError(b.t, err)

	return id
}

// CommitFiles stores files as a tree and commits it.
func (b *Builder) CommitFiles(files map[string]string, message string, parents ...plumbing.Hash) plumbing.Hash {
	b.t.Helper()

	return b.Commit(b.Tree(files), message, parents...)
}

// Tag stores an annotated tag for target and points refs/tags/<name> at it.
func (b *Builder) Tag(name string, target plumbing.Hash) plumbing.Hash {
	b.t.Helper()

	tag := &object.Tag{
		Name:       name,
		Tagger:     Author,
		Message:    "release " + name + "\n",
		TargetType: plumbing.CommitObject,
		Target:     target,
	}

	obj := b.storage.NewEncodedObject()
	require.NoError(b.t, tag.Encode(obj))

	id, err := b.storage.SetEncodedObject(obj)
	require.NoError(b.t, err)

	b.SetRef(plumbing.NewTagReferenceName(name).String(), id)

	return id
}

// SetBranch points refs/heads/<name> at id.
func (b *Builder) SetBranch(name string, id plumbing.Hash) {
	b.t.Helper()

	b.SetRef(plumbing.NewBranchReferenceName(name).String(), id)
}

// SetRef points an arbitrary ref at id.
func (b *Builder) SetRef(name string, id plumbing.Hash) {
	b.t.Helper()

	require.NoError(b.t, b.storage.SetReference(plumbing.NewHashReference(plumbing.ReferenceName(name), id)))
}

// SetHead makes HEAD a symbolic ref to target, e.g. "refs/heads/main".
func (b *Builder) SetHead(target string) {
	b.t.Helper()

	require.NoError(b.t, b.storage.SetReference(
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.ReferenceName(target)),
	))
}

// DetachHead points HEAD directly at id.
func (b *Builder) DetachHead(id plumbing.Hash) {
	b.t.Helper()

	require.NoError(b.t, b.storage.SetReference(plumbing.NewHashReference(plumbing.HEAD, id)))
}

func (b *Builder) tree(files map[string]string) plumbing.Hash {
	blobs := map[string]string{}
	dirs := map[string]map[string]string{}

	for p, content := range files {
		head, rest, nested := strings.Cut(p, "/")
		if !nested {
			blobs[head] = content

			continue
		}

		if dirs[head] == nil {
			dirs[head] = map[string]string{}
		}

		dirs[head][rest] = content
	}

	entries := make([]object.TreeEntry, 0, len(blobs)+len(dirs))

	for name, content := range blobs {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: b.Blob(content)})
	}

	for name, children := range dirs {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: b.tree(children)})
	}

	// Git orders tree entries by name with directories compared as "name/".
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})

	obj := b.storage.NewEncodedObject()
	require.NoError(b.t, (&object.Tree{Entries: entries}).Encode(obj))

	id, err := b.storage.SetEncodedObject(obj)
	require.NoError(b.t, err)

	return id
}

func sortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}

	return e.Name
}
