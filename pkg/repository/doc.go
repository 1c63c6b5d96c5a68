// Package repository maps untrusted repository names to directories under a
// storage root and manages the lifecycle of the bare repositories stored there.
//
// Names are validated before any filesystem access: traversal is rejected by
// the name rules, never by path arithmetic. A canonical name is the validated
// base followed by ".git" and is always a single path segment.
//
// Usage example:
//
//	manager := repository.NewManager("./data/repos", "main", git.NewStore())
//	name, err := manager.Create("project")
//	if types.IsConflict(err) {
//	    // already exists
//	}
package repository
