package resolver

import (
	"context"
	"strings"

	"attestor/internal/did/models"
	"attestor/internal/proof"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// KeyResolver derives did:key documents from the identifier itself. Only
// Ed25519 multikeys are understood.
type KeyResolver struct {
	suite proof.Ed25519Suite
}

func NewKeyResolver() *KeyResolver {
	return &KeyResolver{}
}

func (k *KeyResolver) Resolve(ctx context.Context, did id.DID) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if did.Method() != id.DIDMethodKey {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "not a did:key identifier")
	}
	multikey := did.MethodSpecificID()
	if strings.Contains(multikey, ":") {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "did:key identifier must be a single multikey")
	}
	if _, err := k.suite.DecodePublicKey(multikey); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "did:key does not encode a supported public key")
	}

	keyID := did.String() + "#" + multikey
	return &models.Document{
		Context:    []string{models.DocumentContext[0], models.DocumentContext[1]},
		ID:         did,
		Controller: did,
		VerificationMethod: []models.VerificationMethod{{
			ID:                 keyID,
			Type:               k.suite.KeyType(),
			Controller:         did,
			PublicKeyMultibase: multikey,
		}},
		Authentication: []string{keyID},
	}, nil
}

// KeyDID returns the did:key identifier for an Ed25519 publicKeyMultibase value.
func KeyDID(publicKeyMultibase string) id.DID {
	return id.NewDID(id.DIDMethodKey, publicKeyMultibase)
}
