package repository

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// dirPerm is the mode of the storage root and repository directories.
const dirPerm = 0o755

// Manager owns the storage root: it maps names to directories and creates,
// lists and opens repositories beneath it.
type Manager struct {
	root          string
	initialBranch string
	store         types.ObjectStore
}

// NewManager creates a Manager.
//
// Parameters:
//   - root: Storage root; every repository is a direct child of it.
//   - initialBranch: Branch HEAD points at in newly created repositories.
//   - store: Object store used to initialise and open repositories.
//
// Returns:
//   - *Manager: Stateless beyond its configuration and safe for concurrent use.
func NewManager(root, initialBranch string, store types.ObjectStore) *Manager {
	return &Manager{
		root:          filepath.Clean(root),
		initialBranch: initialBranch,
		store:         store,
	}
}

// Root returns the storage root.
func (m *Manager) Root() string {
	return m.root
}

// EnsureRoot creates the storage root if it does not exist.
func (m *Manager) EnsureRoot() error {
	if err := os.MkdirAll(m.root, dirPerm); err != nil {
		return types.IOError("repository.ensure_root", err)
	}

	return nil
}

// Path maps a raw repository name to its directory under the root.
//
// Parameters:
//   - raw: Untrusted repository name, with or without ".git".
//
// Returns:
//   - string: root/<base>.git, always a direct child of the root.
//   - error: ErrInvalidName when raw fails IsValidName.
func (m *Manager) Path(raw string) (string, error) {
	if !IsValidName(raw) {
		return "", types.Wrap(types.ErrInvalidName, "repository.path", strings.TrimSpace(raw), nil)
	}

	return filepath.Join(m.root, NormalizeName(raw)), nil
}

// Exists reports whether a repository directory exists for raw. Invalid names
// never exist.
func (m *Manager) Exists(raw string) bool {
	dir, err := m.Path(raw)
	if err != nil {
		return false
	}

	info, err := os.Stat(dir)

	return err == nil && info.IsDir()
}

// Create initialises a new bare repository.
//
// The directory is claimed with a single mkdir so that of two concurrent
// creators exactly one succeeds; the other gets ErrRepositoryExists. If
// initialisation fails the directory is removed again.
//
// Parameters:
//   - raw: Untrusted repository name.
//
// Returns:
//   - string: Canonical name of the new repository.
//   - error: ErrInvalidName, ErrRepositoryExists or an IO error.
func (m *Manager) Create(raw string) (string, error) {
	dir, err := m.Path(raw)
	if err != nil {
		return "", err
	}

	canonical := NormalizeName(raw)

	if err := os.Mkdir(dir, dirPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", types.Wrap(types.ErrRepositoryExists, "repository.create", canonical, nil)
		}

		return "", types.IOError("repository.create", err)
	}

	if err := m.store.InitBare(dir, m.initialBranch); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logrus.WithError(rmErr).WithField("path", dir).Warn("Failed to remove partially created repository")
		}

		return "", types.IOError("repository.create", err)
	}

	logrus.WithFields(logrus.Fields{
		"repository": canonical,
		"branch":     m.initialBranch,
	}).Info("Created repository")

	return canonical, nil
}

// List returns the canonical names of all repositories under the root, sorted.
// A missing root yields an empty list.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}

		return nil, types.IOError("repository.list", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), Suffix) || !IsValidName(entry.Name()) {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// Open opens the repository named raw. Callers must Close the handle.
//
// Returns:
//   - types.RepositoryHandle: Open handle.
//   - error: ErrInvalidName, ErrRepositoryNotFound or an IO error.
func (m *Manager) Open(raw string) (types.RepositoryHandle, error) {
	dir, err := m.Path(raw)
	if err != nil {
		return nil, err
	}

	if !m.Exists(raw) {
		return nil, types.Wrap(types.ErrRepositoryNotFound, "repository.open", NormalizeName(raw), nil)
	}

	return m.store.Open(dir)
}

// Size returns the number of bytes stored under the repository directory.
func (m *Manager) Size(raw string) (int64, error) {
	dir, err := m.Path(raw)
	if err != nil {
		return 0, err
	}

	var total int64

	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		total += info.Size()

		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, types.Wrap(types.ErrRepositoryNotFound, "repository.size", NormalizeName(raw), nil)
		}

		return 0, types.IOError("repository.size", err)
	}

	return total, nil
}
