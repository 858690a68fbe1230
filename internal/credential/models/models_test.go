package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	c := &Credential{Status: StatusActive, ExpiresAt: &past}

	assert.True(t, c.NeedsExpiry(now))
	c.ApplyExpiry(now)
	assert.Equal(t, StatusExpired, c.Status)
	assert.False(t, c.NeedsExpiry(now))

	revoked := &Credential{Status: StatusRevoked, ExpiresAt: &past}
	revoked.ApplyExpiry(now)
	assert.Equal(t, StatusRevoked, revoked.Status, "revoked dominates expired")

	open := &Credential{Status: StatusActive}
	assert.False(t, open.ExpiredAt(now))
}

func TestCanRevoke(t *testing.T) {
	c := &Credential{Issuer: "did:email:a", Status: StatusActive}
	assert.True(t, dErrors.HasCode(c.CanRevoke("did:email:b"), dErrors.CodeForbidden))
	require.NoError(t, c.CanRevoke("did:email:a"))

	c.ApplyRevocation("did:email:a", "done", time.Now())
	assert.True(t, dErrors.HasCode(c.CanRevoke("did:email:a"), dErrors.CodeConflict))
	assert.True(t, dErrors.HasCode(c.CanRevoke("did:email:b"), dErrors.CodeConflict))
}

func TestSigningPayloadIgnoresStatusAndKeyOrder(t *testing.T) {
	cid := id.NewCredentialID()
	a := &Credential{ID: cid, Issuer: "did:email:a", Subject: "did:email:s",
		Claims: map[string]any{"x": 1.0, "y": "z"}, Status: StatusActive}
	b := &Credential{ID: cid, Issuer: "did:email:a", Subject: "did:email:s",
		Claims: map[string]any{"y": "z", "x": 1.0}, Status: StatusRevoked}

	pa, err := a.SigningPayload()
	require.NoError(t, err)
	pb, err := b.SigningPayload()
	require.NoError(t, err)
	assert.Equal(t, pa, pb)

	b.Claims["x"] = 2.0
	pb, err = b.SigningPayload()
	require.NoError(t, err)
	assert.NotEqual(t, pa, pb)
}

func TestIssueRequest(t *testing.T) {
	valid := func() *IssueRequest {
		return &IssueRequest{Issuer: " did:email:a ", Subject: "did:custom:s"}
	}

	t.Run("defaults", func(t *testing.T) {
		r := valid()
		r.Normalize()
		require.NoError(t, r.Validate())
		assert.Equal(t, DefaultType, r.Type)
		assert.Equal(t, "did:email:a", r.Issuer)
		assert.True(t, r.WantsAnchor())
	})

	t.Run("anchor opt out", func(t *testing.T) {
		off := false
		r := valid()
		r.AnchorOnChain = &off
		assert.False(t, r.WantsAnchor())
		r.RequireAnchor = true
		assert.True(t, r.WantsAnchor())
	})

	t.Run("issuer must use a supported method", func(t *testing.T) {
		r := valid()
		r.Issuer = "did:custom:a"
		r.Normalize()
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeInvalidInput))
	})

	t.Run("empty claim name", func(t *testing.T) {
		r := valid()
		r.Claims = map[string]any{" ": 1}
		r.Normalize()
		assert.True(t, dErrors.HasCode(r.Validate(), dErrors.CodeInvalidInput))
	})
}

func TestNormalizeClaims(t *testing.T) {
	out, err := NormalizeClaims(map[string]any{"n": 3, "nested": map[string]int{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, float64(3), out["n"])
	assert.Equal(t, map[string]any{"a": float64(1)}, out["nested"])

	empty, err := NormalizeClaims(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = NormalizeClaims(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
