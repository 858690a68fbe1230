package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attestor/pkg/domain-errors"
)

func TestParseDID(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantMethod DIDMethod
		wantMSID   string
		wantErr    bool
	}{
		{"ethr", "did:ethr:0xab12cd", DIDMethodEthr, "0xab12cd", false},
		{"email", "did:email:9f86d081884c7d65", DIDMethodEmail, "9f86d081884c7d65", false},
		{"web with path segments", "did:web:github:alice", DIDMethodWeb, "github:alice", false},
		{"key", "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", DIDMethodKey, "z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", false},
		{"trims whitespace", "  did:email:abc  ", DIDMethodEmail, "abc", false},
		{"unsupported method", "did:sov:abc", "", "", true},
		{"uppercase method", "did:ETHR:abc", "", "", true},
		{"missing msid", "did:ethr:", "", "", true},
		{"empty segment", "did:web:a::b", "", "", true},
		{"no scheme", "ethr:abc", "", "", true},
		{"empty", "", "", "", true},
		{"oversized", "did:web:" + strings.Repeat("a", 600), "", "", true},
		{"illegal char", "did:web:a/b", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, d.Method())
			assert.Equal(t, tt.wantMSID, d.MethodSpecificID())
		})
	}
}

func TestParseDIDSyntaxAcceptsUnknownMethods(t *testing.T) {
	d, err := ParseDIDSyntax("did:sov:abc")
	require.NoError(t, err)
	assert.Equal(t, DIDMethod("sov"), d.Method())
	assert.False(t, d.Method().IsSupported())
}

func TestNewDID(t *testing.T) {
	d := NewDID(DIDMethodWeb, "github:alice")
	assert.Equal(t, DID("did:web:github:alice"), d)
	assert.Equal(t, "github:alice", d.MethodSpecificID())
	assert.True(t, DID("").IsNil())
	assert.Equal(t, DIDMethod(""), DID("garbage").Method())
}
