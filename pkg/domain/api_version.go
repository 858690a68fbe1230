package domain

import (
	dErrors "attestor/pkg/domain-errors"
)

// APIVersion is a route version segment such as "v1".
type APIVersion string

const APIVersionV1 APIVersion = "v1"

var knownVersions = map[APIVersion]struct{}{
	APIVersionV1: {},
}

// ParseAPIVersion validates s against the known versions.
func ParseAPIVersion(s string) (APIVersion, error) {
	v := APIVersion(s)
	if _, ok := knownVersions[v]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown API version: "+s)
	}
	return v, nil
}

func (v APIVersion) String() string { return string(v) }

func (v APIVersion) IsNil() bool { return v == "" }
