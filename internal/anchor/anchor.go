// Package anchor records payload hashes on an external ledger.
//
// Anchoring is best effort: callers decide whether a failure matters. The
// service never runs consensus itself; it talks to a ledger gateway over HTTP.
package anchor

import (
	"context"
	"errors"
)

var (
	ErrDisabled    = errors.New("anchor: ledger anchoring disabled")
	ErrCircuitOpen = errors.New("anchor: ledger circuit open")
	ErrRejected    = errors.New("anchor: ledger rejected payload")
)

// Anchorer submits a payload hash and returns the ledger transaction reference.
type Anchorer interface {
	Anchor(ctx context.Context, payloadHash string) (string, error)
}

// Disabled is the Anchorer used when no ledger is configured.
type Disabled struct{}

func (Disabled) Anchor(context.Context, string) (string, error) {
	return "", ErrDisabled
}
