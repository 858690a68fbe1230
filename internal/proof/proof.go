// Package proof is the cryptographic capability behind DID documents and
// credential proofs: key generation, signing, verification and
// selective-disclosure proofs.
//
// Signature suites are pluggable and selected per DID method; callers never
// depend on a concrete algorithm. Private keys stay inside the KeyRing and are
// addressed by verification-method ID (for example did:email:abc#keys-1).
package proof

import (
	"context"
	"errors"

	id "attestor/pkg/domain"
)

var (
	ErrInvalidSignature = errors.New("proof: signature invalid")
	ErrUnknownKey       = errors.New("proof: unknown signing key")
	ErrUnsupportedSuite = errors.New("proof: unsupported key type")
	ErrMalformedKey     = errors.New("proof: malformed public key")
	ErrKeyExists        = errors.New("proof: key id already in use")
)

// PublicKey is the public half of a generated key pair as published in a DID document.
type PublicKey struct {
	Type      string // verification method type, e.g. Ed25519VerificationKey2020
	Multibase string // publicKeyMultibase value
}

// VerificationKey identifies the key a signature must verify against.
type VerificationKey struct {
	Type               string
	PublicKeyMultibase string
}

// Suite is one signature scheme.
type Suite interface {
	// KeyType is the DID-document verification method type this suite produces.
	KeyType() string
	// ProofType is the credential proof type tag.
	ProofType() string
	GenerateKey() (public, private []byte, err error)
	Sign(private, payload []byte) ([]byte, error)
	Verify(public, payload, signature []byte) bool
	// EncodePublicKey renders a raw public key as publicKeyMultibase.
	EncodePublicKey(public []byte) (string, error)
	DecodePublicKey(multibase string) ([]byte, error)
}

// Capability is the narrow contract the registry, issuance and verification depend on.
type Capability interface {
	GenerateKeyPair(ctx context.Context, method id.DIDMethod, keyID string) (PublicKey, error)
	DiscardKey(ctx context.Context, keyID string) error
	Sign(ctx context.Context, keyID string, payload []byte) (Signature, error)
	Verify(ctx context.Context, key VerificationKey, payload []byte, signature string) error
	GenerateProof(ctx context.Context, keyID string, claims map[string]any, fields []string) (*DisclosureProof, error)
}

// Signature is an encoded signature plus the suite that produced it.
type Signature struct {
	ProofType string
	Value     string // multibase encoded
}
