package domain

import (
	"regexp"
	"strings"

	dErrors "attestor/pkg/domain-errors"
)

// DIDMethod names a DID method (the second segment of a DID).
type DIDMethod string

const (
	DIDMethodEthr  DIDMethod = "ethr"
	DIDMethodEmail DIDMethod = "email"
	DIDMethodWeb   DIDMethod = "web"
	DIDMethodKey   DIDMethod = "key"
)

var supportedMethods = map[DIDMethod]struct{}{
	DIDMethodEthr:  {},
	DIDMethodEmail: {},
	DIDMethodWeb:   {},
	DIDMethodKey:   {},
}

// IsSupported reports whether the method is on the allow-list.
func (m DIDMethod) IsSupported() bool {
	_, ok := supportedMethods[m]
	return ok
}

func (m DIDMethod) String() string { return string(m) }

// SupportedMethods returns the allow-listed DID methods.
func SupportedMethods() []DIDMethod {
	return []DIDMethod{DIDMethodEthr, DIDMethodEmail, DIDMethodWeb, DIDMethodKey}
}

const maxDIDLength = 512

var didGrammar = regexp.MustCompile(`^did:([a-z0-9]+):([A-Za-z0-9._%-]+(?::[A-Za-z0-9._%-]+)*)$`)

// DID is a syntactically valid decentralized identifier: did:<method>:<method-specific-id>.
// The zero value is the empty DID.
type DID string

// ParseDID checks the DID grammar and the supported-method allow-list.
func ParseDID(s string) (DID, error) {
	d, err := ParseDIDSyntax(s)
	if err != nil {
		return "", err
	}
	if !d.Method().IsSupported() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported DID method: "+d.Method().String())
	}
	return d, nil
}

// ParseDIDSyntax checks only the DID grammar, accepting any method name.
func ParseDIDSyntax(s string) (DID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DID is required")
	}
	if len(s) > maxDIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "DID is too long")
	}
	if !didGrammar.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid DID format")
	}
	return DID(s), nil
}

// NewDID builds a DID from its parts without validation.
func NewDID(method DIDMethod, msid string) DID {
	return DID("did:" + string(method) + ":" + msid)
}

// Method returns the method segment, or "" for a malformed DID.
func (d DID) Method() DIDMethod {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) != 3 {
		return ""
	}
	return DIDMethod(parts[1])
}

// MethodSpecificID returns everything after the method segment.
func (d DID) MethodSpecificID() string {
	parts := strings.SplitN(string(d), ":", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}

func (d DID) String() string { return string(d) }

func (d DID) IsNil() bool { return d == "" }
