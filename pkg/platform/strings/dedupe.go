// Package strings provides small slice-of-string helpers used when normalizing
// request input such as permission scopes and field allow-lists.
package strings

import (
	"strings"
)

// DedupeAndTrim drops blanks and duplicates after trimming, preserving first-seen order.
//
//	DedupeAndTrim([]string{"  name ", "dob", "name", ""}) // []string{"name", "dob"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower is DedupeAndTrim with case folding to lower case.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

// Subset reports whether every element of sub appears in set.
func Subset(sub, set []string) bool {
	if len(sub) == 0 {
		return true
	}
	index := make(map[string]struct{}, len(set))
	for _, v := range set {
		index[v] = struct{}{}
	}
	for _, v := range sub {
		if _, ok := index[v]; !ok {
			return false
		}
	}
	return true
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
