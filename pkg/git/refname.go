package git

import (
	"strings"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// ValidateBranchName applies git's ref name rules to a branch name (the part
// after refs/heads/).
//
// Returns:
//   - error: ErrInvalidBranchName describing the first violated rule, nil when valid.
func ValidateBranchName(name string) error {
	if reason := branchNameViolation(name); reason != "" {
		return types.Wrap(types.ErrInvalidBranchName, "git.validate_branch", reason, nil)
	}

	return nil
}

func branchNameViolation(name string) string {
	switch {
	case name == "":
		return "name is empty"
	case name == "@":
		return `name is "@"`
	case name == "HEAD":
		return `name is "HEAD"`
	case strings.HasPrefix(name, "-"):
		return "name starts with '-'"
	case strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return "name starts or ends with '/'"
	case strings.HasSuffix(name, "."):
		return "name ends with '.'"
	case strings.Contains(name, ".."):
		return `name contains ".."`
	case strings.Contains(name, "//"):
		return `name contains "//"`
	case strings.Contains(name, "@{"):
		return `name contains "@{"`
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return "name contains a forbidden character"
		}
	}

	for _, component := range strings.Split(name, "/") {
		if strings.HasPrefix(component, ".") {
			return "a path component starts with '.'"
		}

		if strings.HasSuffix(component, ".lock") {
			return `a path component ends with ".lock"`
		}
	}

	return ""
}
