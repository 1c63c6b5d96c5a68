package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// Store is the go-git backed object store. It keeps no state between calls;
// every Open builds a fresh filesystem storage.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Open opens the bare repository at path.
//
// Parameters:
//   - path: Repository directory.
//
// Returns:
//   - types.RepositoryHandle: Handle backed by filesystem storage. Callers must Close it.
//   - error: ErrRepositoryNotFound when path holds no repository, an IO error otherwise.
func (s *Store) Open(path string) (types.RepositoryHandle, error) {
	fs := osfs.New(path)
	storage := filesystem.NewStorage(fs, cache.NewObjectLRUDefault())

	repo, err := git.Open(storage, nil)
	if err != nil {
		_ = storage.Close()

		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, types.Wrap(types.ErrRepositoryNotFound, "git.open", path, err)
		}

		return nil, types.IOError("git.open", err)
	}

	logrus.WithField("path", path).Trace("Opened repository")

	return &Repository{
		path:    path,
		fs:      fs,
		storage: storage,
		repo:    repo,
	}, nil
}

// InitBare creates a bare repository at path with HEAD pointing at
// refs/heads/<initialBranch>.
func (s *Store) InitBare(path, initialBranch string) error {
	if err := ValidateBranchName(initialBranch); err != nil {
		return err
	}

	_, err := git.PlainInitWithOptions(path, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(initialBranch),
		},
		Bare: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise bare repository at %s: %w", path, err)
	}

	return nil
}
