// Package mocks provides mock implementations of minigit interfaces for testing.
package mocks

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/stretchr/testify/mock"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// RepositoryHandle is a mock type for the RepositoryHandle type.
type RepositoryHandle struct {
	mock.Mock
}

// ResolveRef provides a mock function with given fields: nameOrID.
func (_m *RepositoryHandle) ResolveRef(nameOrID string) (plumbing.Hash, error) {
	ret := _m.Called(nameOrID)

	return hashAt(ret, 0), ret.Error(1)
}

// SymbolicHead provides a mock function with given fields:.
func (_m *RepositoryHandle) SymbolicHead() (string, bool, error) {
	ret := _m.Called()

	return ret.String(0), ret.Bool(1), ret.Error(2)
}

// HeadObjectID provides a mock function with given fields:.
func (_m *RepositoryHandle) HeadObjectID() (plumbing.Hash, bool, error) {
	ret := _m.Called()

	return hashAt(ret, 0), ret.Bool(1), ret.Error(2)
}

// ListHeadRefs provides a mock function with given fields:.
func (_m *RepositoryHandle) ListHeadRefs() ([]types.Ref, error) {
	ret := _m.Called()

	var result0 []types.Ref
	if v, ok := ret.Get(0).([]types.Ref); ok {
		result0 = v
	}

	return result0, ret.Error(1)
}

// ParseCommit provides a mock function with given fields: id.
func (_m *RepositoryHandle) ParseCommit(id plumbing.Hash) (types.Commit, error) {
	ret := _m.Called(id)

	var result0 types.Commit
	if v, ok := ret.Get(0).(types.Commit); ok {
		result0 = v
	}

	return result0, ret.Error(1)
}

// Log provides a mock function with given fields: from, limit.
func (_m *RepositoryHandle) Log(from plumbing.Hash, limit int) ([]types.Commit, error) {
	ret := _m.Called(from, limit)

	var result0 []types.Commit
	if v, ok := ret.Get(0).([]types.Commit); ok {
		result0 = v
	}

	return result0, ret.Error(1)
}

// ListTreeEntries provides a mock function with given fields: treeID.
func (_m *RepositoryHandle) ListTreeEntries(treeID plumbing.Hash) ([]types.TreeEntryRecord, error) {
	ret := _m.Called(treeID)

	var result0 []types.TreeEntryRecord
	if v, ok := ret.Get(0).([]types.TreeEntryRecord); ok {
		result0 = v
	}

	return result0, ret.Error(1)
}

// BlobSize provides a mock function with given fields: id.
func (_m *RepositoryHandle) BlobSize(id plumbing.Hash) (int64, error) {
	ret := _m.Called(id)

	var result0 int64
	if v, ok := ret.Get(0).(int64); ok {
		result0 = v
	}

	return result0, ret.Error(1)
}

// ReadBlob provides a mock function with given fields: id.
func (_m *RepositoryHandle) ReadBlob(id plumbing.Hash) ([]byte, error) {
	ret := _m.Called(id)

	var result0 []byte
	if v, ok := ret.Get(0).([]byte); ok {
		result0 = v
	}

	return result0, ret.Error(1)
}

// CreateBranch provides a mock function with given fields: name, target.
func (_m *RepositoryHandle) CreateBranch(name string, target plumbing.Hash) error {
	ret := _m.Called(name, target)

	return ret.Error(0)
}

// Storer provides a mock function with given fields:.
func (_m *RepositoryHandle) Storer() storer.Storer {
	ret := _m.Called()

	if v, ok := ret.Get(0).(storer.Storer); ok {
		return v
	}

	return nil
}

// Close provides a mock function with given fields:.
func (_m *RepositoryHandle) Close() error {
	ret := _m.Called()

	return ret.Error(0)
}

func hashAt(ret mock.Arguments, index int) plumbing.Hash {
	if v, ok := ret.Get(index).(plumbing.Hash); ok {
		return v
	}

	return plumbing.ZeroHash
}
