package proof

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"

	"attestor/pkg/platform/canonhash"
)

const SelectiveDisclosureProofType = "SaltedDigestDisclosure2024"

// DisclosureProof commits to every claim through salted digests, signs the
// sorted digest list, and reveals only the disclosed claims with their salts.
type DisclosureProof struct {
	Type      string            `json:"type"`
	Digests   []string          `json:"digests"`
	Disclosed map[string]any    `json:"disclosed"`
	Salts     map[string]string `json:"salts"`
	Signature Signature         `json:"signature"`
}

// GenerateProof discloses the claims named in fields. Fields absent from claims are ignored.
func (s *Service) GenerateProof(ctx context.Context, keyID string, claims map[string]any, fields []string) (*DisclosureProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	disclose := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		disclose[f] = struct{}{}
	}

	p := &DisclosureProof{
		Type:      SelectiveDisclosureProofType,
		Disclosed: make(map[string]any),
		Salts:     make(map[string]string),
	}
	for name, value := range claims {
		salt, err := newSalt()
		if err != nil {
			return nil, err
		}
		digest, err := claimDigest(salt, name, value)
		if err != nil {
			return nil, err
		}
		p.Digests = append(p.Digests, digest)
		if _, ok := disclose[name]; ok {
			p.Disclosed[name] = value
			p.Salts[name] = salt
		}
	}
	slices.Sort(p.Digests)

	payload, err := canonhash.Encode(p.Digests)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(ctx, keyID, payload)
	if err != nil {
		return nil, err
	}
	p.Signature = sig
	return p, nil
}

// VerifyDisclosure checks the digest-list signature and that every disclosed
// claim is committed to by a digest.
func (s *Service) VerifyDisclosure(ctx context.Context, key VerificationKey, p *DisclosureProof) error {
	if p == nil {
		return ErrInvalidSignature
	}
	payload, err := canonhash.Encode(p.Digests)
	if err != nil {
		return err
	}
	if err := s.Verify(ctx, key, payload, p.Signature.Value); err != nil {
		return err
	}
	for name, value := range p.Disclosed {
		salt, ok := p.Salts[name]
		if !ok {
			return fmt.Errorf("%w: missing salt for %s", ErrInvalidSignature, name)
		}
		digest, err := claimDigest(salt, name, value)
		if err != nil {
			return err
		}
		if _, found := slices.BinarySearch(p.Digests, digest); !found {
			return fmt.Errorf("%w: claim %s not committed", ErrInvalidSignature, name)
		}
	}
	return nil
}

func newSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func claimDigest(salt, name string, value any) (string, error) {
	enc, err := canonhash.Encode([]any{salt, name, value})
	if err != nil {
		return "", fmt.Errorf("encode claim %s: %w", name, err)
	}
	sum := sha256.Sum256(enc)
	return hex.EncodeToString(sum[:]), nil
}
