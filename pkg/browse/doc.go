// Package browse resolves branches and walks commit trees of an open
// repository.
//
// The free functions (Resolve, DefaultBranch, ListDirectory, EntryInfo,
// ReadFile) work on a handle the caller owns. Service wraps them with scoped
// handle acquisition per call for the HTTP and CLI layers.
package browse
