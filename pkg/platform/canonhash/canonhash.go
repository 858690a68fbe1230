// Package canonhash produces deterministic encodings and digests of JSON-shaped values.
//
// encoding/json sorts map keys, so values built from maps encode identically
// regardless of insertion order. Structs encode in field order.
package canonhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

const prefix = "sha256:"

// Encode returns the canonical JSON encoding of v.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// SumObject returns the prefixed digest of v's canonical encoding and the encoding itself.
func SumObject(v any) (string, []byte, error) {
	b, err := Encode(v)
	if err != nil {
		return "", nil, err
	}
	return SumBytes(b), b, nil
}

// SumBytes returns the prefixed SHA-256 digest of b.
func SumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return prefix + hex.EncodeToString(sum[:])
}
