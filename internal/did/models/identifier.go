package models

import (
	"encoding/hex"
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// IdentifierKind is the kind of originating identifier a DID was registered with.
type IdentifierKind string

const (
	IdentifierWallet IdentifierKind = "wallet"
	IdentifierEmail  IdentifierKind = "email"
	IdentifierSocial IdentifierKind = "social"
)

var (
	walletPattern   = regexp.MustCompile(`^0x[0-9a-f]{40}$`)
	providerPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{0,62}$`)
	handlePattern   = regexp.MustCompile(`^[a-z0-9._-]{1,64}$`)
)

// msidHashLength is the number of hex characters of the identifier hash used
// as the method-specific ID for email and social DIDs.
const msidHashLength = 32

// Identifier is a normalized originating identifier.
// Value is the lowercase wallet address, the lowercase email, or provider:handle.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

func NewWalletIdentifier(address string) (Identifier, error) {
	v := strings.ToLower(strings.TrimSpace(address))
	if !walletPattern.MatchString(v) {
		return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "wallet_address must be a 0x-prefixed 20-byte hex address")
	}
	return Identifier{Kind: IdentifierWallet, Value: v}, nil
}

func NewEmailIdentifier(email string) (Identifier, error) {
	v, err := NormalizeEmail(email)
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{Kind: IdentifierEmail, Value: v}, nil
}

func NewSocialIdentifier(provider, handle string) (Identifier, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	h := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if !providerPattern.MatchString(p) {
		return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "social_provider is invalid")
	}
	if !handlePattern.MatchString(h) {
		return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "social_handle is invalid")
	}
	return Identifier{Kind: IdentifierSocial, Value: p + ":" + h}, nil
}

// NormalizeEmail trims and lowercases an email address after checking its syntax.
func NormalizeEmail(email string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(email))
	if v == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return "", dErrors.New(dErrors.CodeInvalidInput, "email is invalid")
	}
	return v, nil
}

// Method is the DID method an identifier kind registers under.
func (i Identifier) Method() id.DIDMethod {
	switch i.Kind {
	case IdentifierWallet:
		return id.DIDMethodEthr
	case IdentifierEmail:
		return id.DIDMethodEmail
	default:
		return id.DIDMethodWeb
	}
}

// Hash is the Keccak-256 digest of kind and value, hex encoded. It is the
// uniqueness key of the registry; the raw identifier is never stored.
func (i Identifier) Hash() string {
	return HashIdentifier(string(i.Kind) + ":" + i.Value)
}

// DID derives the identifier's DID: did:ethr:<address>, did:email:<hash>, or
// did:web:<provider>:<hash>.
func (i Identifier) DID() id.DID {
	prefix := i.Hash()[:msidHashLength]
	switch i.Kind {
	case IdentifierWallet:
		return id.NewDID(id.DIDMethodEthr, i.Value)
	case IdentifierEmail:
		return id.NewDID(id.DIDMethodEmail, prefix)
	default:
		provider, _, _ := strings.Cut(i.Value, ":")
		return id.NewDID(id.DIDMethodWeb, provider+":"+prefix)
	}
}

// HashIdentifier returns the hex Keccak-256 digest of s.
func HashIdentifier(s string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
