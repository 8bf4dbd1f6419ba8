package domain

import (
	"regexp"
	"strings"
)

// DatasetPrefix is prepended to every canonical dataset name.
const DatasetPrefix = "allocation_"

// MaxCanonicalNameLen bounds canonical names so they fit any storage key column.
const MaxCanonicalNameLen = 128

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	canonicalBody = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// CanonicalName derives the dataset name for a subject label:
// trim, lowercase, collapse whitespace runs to "_", prefix with DatasetPrefix.
// The result is validated against an allow-list before it is used anywhere.
func CanonicalName(subject string) (string, error) {
	body := strings.TrimSpace(subject)
	if body == "" {
		return "", NewError(ErrValidation, "subject is required")
	}
	body = whitespaceRun.ReplaceAllString(strings.ToLower(body), "_")
	if !canonicalBody.MatchString(body) {
		return "", NewError(ErrValidation, "subject may only contain letters, digits, spaces, '_' and '-'").
			WithIdentifier(subject)
	}
	name := DatasetPrefix + body
	if len(name) > MaxCanonicalNameLen {
		return "", NewError(ErrValidation, "subject is too long").WithIdentifier(subject)
	}
	return name, nil
}

// IsCanonicalName reports whether name has the shape CanonicalName produces.
func IsCanonicalName(name string) bool {
	if len(name) > MaxCanonicalNameLen || !strings.HasPrefix(name, DatasetPrefix) {
		return false
	}
	return canonicalBody.MatchString(strings.TrimPrefix(name, DatasetPrefix))
}
