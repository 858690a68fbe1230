package proof

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/multiformats/go-multibase"
)

const (
	Ed25519KeyType   = "Ed25519VerificationKey2020"
	Ed25519ProofType = "Ed25519Signature2020"
)

// ed25519Multicodec is the varint-encoded multicodec prefix for ed25519-pub.
var ed25519Multicodec = []byte{0xed, 0x01}

// Ed25519Suite signs with Ed25519 and publishes keys as base58btc multikeys.
type Ed25519Suite struct{}

func (Ed25519Suite) KeyType() string   { return Ed25519KeyType }
func (Ed25519Suite) ProofType() string { return Ed25519ProofType }

func (Ed25519Suite) GenerateKey() ([]byte, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return pub, priv, nil
}

func (Ed25519Suite) Sign(private, payload []byte) ([]byte, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, ErrUnknownKey
	}
	return ed25519.Sign(ed25519.PrivateKey(private), payload), nil
}

func (Ed25519Suite) Verify(public, payload, signature []byte) bool {
	if len(public) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(public), payload, signature)
}

func (Ed25519Suite) EncodePublicKey(public []byte) (string, error) {
	buf := make([]byte, 0, len(ed25519Multicodec)+len(public))
	buf = append(buf, ed25519Multicodec...)
	buf = append(buf, public...)
	return multibase.Encode(multibase.Base58BTC, buf)
}

func (Ed25519Suite) DecodePublicKey(value string) ([]byte, error) {
	_, raw, err := multibase.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(raw) != len(ed25519Multicodec)+ed25519.PublicKeySize ||
		raw[0] != ed25519Multicodec[0] || raw[1] != ed25519Multicodec[1] {
		return nil, ErrMalformedKey
	}
	return raw[len(ed25519Multicodec):], nil
}
