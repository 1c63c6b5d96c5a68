package repository

import (
	"regexp"
	"strings"
)

// Suffix terminates every canonical repository directory name.
const Suffix = ".git"

var baseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidName reports whether raw names a repository. One trailing ".git" is
// ignored; the remaining base must be non-empty, free of "..", "/" and "\",
// and consist only of ASCII letters, digits, '_' and '-'.
func IsValidName(raw string) bool {
	name := strings.TrimSpace(raw)
	if name == "" {
		return false
	}

	base := strings.TrimSuffix(name, Suffix)
	if base == "" {
		return false
	}

	if strings.Contains(base, "..") || strings.ContainsAny(base, `/\`) {
		return false
	}

	return baseNamePattern.MatchString(base)
}

// NormalizeName trims raw and appends ".git" when it is missing. It does not
// validate; NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if strings.HasSuffix(name, Suffix) {
		return name
	}

	return name + Suffix
}

// DisplayName strips the ".git" suffix from a canonical name.
func DisplayName(canonical string) string {
	return strings.TrimSuffix(canonical, Suffix)
}
