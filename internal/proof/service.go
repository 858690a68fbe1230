package proof

import (
	"context"
	"fmt"

	"github.com/multiformats/go-multibase"

	id "attestor/pkg/domain"
)

// Service implements Capability over a per-method suite registry and a KeyRing.
type Service struct {
	byMethod map[id.DIDMethod]Suite
	byType   map[string]Suite
	fallback Suite
	keys     KeyRing
}

type Option func(*Service)

// WithSuite binds a suite to a DID method.
func WithSuite(method id.DIDMethod, suite Suite) Option {
	return func(s *Service) {
		s.byMethod[method] = suite
		s.byType[suite.KeyType()] = suite
	}
}

// WithKeyRing replaces the default in-memory key ring.
func WithKeyRing(keys KeyRing) Option {
	return func(s *Service) {
		s.keys = keys
	}
}

// New returns a Service where every method defaults to Ed25519.
func New(opts ...Option) *Service {
	ed := Ed25519Suite{}
	s := &Service{
		byMethod: make(map[id.DIDMethod]Suite),
		byType:   map[string]Suite{ed.KeyType(): ed},
		fallback: ed,
		keys:     NewMemoryKeyRing(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) suiteForMethod(method id.DIDMethod) Suite {
	if suite, ok := s.byMethod[method]; ok {
		return suite
	}
	return s.fallback
}

// SuiteForKeyType returns the suite that understands keyType.
func (s *Service) SuiteForKeyType(keyType string) (Suite, error) {
	suite, ok := s.byType[keyType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSuite, keyType)
	}
	return suite, nil
}

// GenerateKeyPair creates a key for method, keeps the private half under keyID
// and returns the public half ready for a DID document. A keyID that already
// holds a key is never overwritten.
func (s *Service) GenerateKeyPair(ctx context.Context, method id.DIDMethod, keyID string) (PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return PublicKey{}, err
	}
	suite := s.suiteForMethod(method)
	pub, priv, err := suite.GenerateKey()
	if err != nil {
		return PublicKey{}, err
	}
	encoded, err := suite.EncodePublicKey(pub)
	if err != nil {
		return PublicKey{}, err
	}
	if !s.keys.Insert(keyID, suite.KeyType(), priv) {
		return PublicKey{}, fmt.Errorf("%w: %s", ErrKeyExists, keyID)
	}
	return PublicKey{Type: suite.KeyType(), Multibase: encoded}, nil
}

// DiscardKey drops the private key stored under keyID. Unknown IDs are ignored.
func (s *Service) DiscardKey(_ context.Context, keyID string) error {
	s.keys.Delete(keyID)
	return nil
}

// Sign signs payload with the key stored under keyID.
func (s *Service) Sign(ctx context.Context, keyID string, payload []byte) (Signature, error) {
	if err := ctx.Err(); err != nil {
		return Signature{}, err
	}
	keyType, priv, ok := s.keys.Get(keyID)
	if !ok {
		return Signature{}, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	suite, err := s.SuiteForKeyType(keyType)
	if err != nil {
		return Signature{}, err
	}
	raw, err := suite.Sign(priv, payload)
	if err != nil {
		return Signature{}, err
	}
	value, err := multibase.Encode(multibase.Base58BTC, raw)
	if err != nil {
		return Signature{}, err
	}
	return Signature{ProofType: suite.ProofType(), Value: value}, nil
}

// Verify checks a multibase signature against a published verification key.
func (s *Service) Verify(ctx context.Context, key VerificationKey, payload []byte, signature string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	suite, err := s.SuiteForKeyType(key.Type)
	if err != nil {
		return err
	}
	pub, err := suite.DecodePublicKey(key.PublicKeyMultibase)
	if err != nil {
		return err
	}
	_, sig, err := multibase.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: undecodable signature", ErrInvalidSignature)
	}
	if !suite.Verify(pub, payload, sig) {
		return ErrInvalidSignature
	}
	return nil
}
