package models

import (
	"slices"
	"strconv"

	id "attestor/pkg/domain"
)

var DocumentContext = []string{
	"https://www.w3.org/ns/did/v1",
	"https://w3id.org/security/suites/ed25519-2020/v1",
}

type VerificationMethod struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Controller         id.DID `json:"controller"`
	PublicKeyMultibase string `json:"publicKeyMultibase"`
}

// Document is a DID document. Verification methods are only ever appended.
type Document struct {
	Context            []string             `json:"@context"`
	ID                 id.DID               `json:"id"`
	Controller         id.DID               `json:"controller"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	Authentication     []string             `json:"authentication"`
}

// KeyID is the verification method ID of the n-th key of did, starting at 1.
func KeyID(did id.DID, n int) string {
	return did.String() + "#keys-" + strconv.Itoa(n)
}

// NewDocument builds a self-controlled document with one verification method
// that is also the authentication method.
func NewDocument(did id.DID, keyType, publicKeyMultibase string) *Document {
	keyID := KeyID(did, 1)
	return &Document{
		Context:    slices.Clone(DocumentContext),
		ID:         did,
		Controller: did,
		VerificationMethod: []VerificationMethod{{
			ID:                 keyID,
			Type:               keyType,
			Controller:         did,
			PublicKeyMultibase: publicKeyMultibase,
		}},
		Authentication: []string{keyID},
	}
}

// NextKeyID is the ID the next rotated key will get.
func (d *Document) NextKeyID() string {
	return KeyID(d.ID, len(d.VerificationMethod)+1)
}

// CurrentKeyID is the method new proofs should be made with.
func (d *Document) CurrentKeyID() string {
	if len(d.Authentication) > 0 {
		return d.Authentication[len(d.Authentication)-1]
	}
	if len(d.VerificationMethod) > 0 {
		return d.VerificationMethod[len(d.VerificationMethod)-1].ID
	}
	return ""
}

// FindVerificationMethod resolves a reference, either a full ID or a #fragment.
func (d *Document) FindVerificationMethod(ref string) (VerificationMethod, bool) {
	if len(ref) > 0 && ref[0] == '#' {
		ref = d.ID.String() + ref
	}
	for _, vm := range d.VerificationMethod {
		if vm.ID == ref {
			return vm, true
		}
	}
	return VerificationMethod{}, false
}

// ApplyKeyRotation appends a key under NextKeyID and makes it the only
// authentication method. Earlier keys stay listed so existing proofs still verify.
func (d *Document) ApplyKeyRotation(keyID, keyType, publicKeyMultibase string) {
	d.VerificationMethod = append(d.VerificationMethod, VerificationMethod{
		ID:                 keyID,
		Type:               keyType,
		Controller:         d.Controller,
		PublicKeyMultibase: publicKeyMultibase,
	})
	d.Authentication = []string{keyID}
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Context = slices.Clone(d.Context)
	c.VerificationMethod = slices.Clone(d.VerificationMethod)
	c.Authentication = slices.Clone(d.Authentication)
	return &c
}
