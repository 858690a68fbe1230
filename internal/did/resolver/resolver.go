// Package resolver resolves DIDs to documents through strategies keyed by
// DID method, with an optional caching layer in front.
package resolver

import (
	"context"

	"attestor/internal/did/models"
	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

// Resolver resolves a DID to its current document.
type Resolver interface {
	Resolve(ctx context.Context, did id.DID) (*models.Document, error)
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, did id.DID) (*models.Document, error)

func (f Func) Resolve(ctx context.Context, did id.DID) (*models.Document, error) {
	return f(ctx, did)
}

// Registry dispatches to the resolver registered for the DID's method.
type Registry struct {
	byMethod map[id.DIDMethod]Resolver
}

func NewRegistry() *Registry {
	return &Registry{byMethod: make(map[id.DIDMethod]Resolver)}
}

// Register binds r to method, replacing any earlier binding.
func (r *Registry) Register(method id.DIDMethod, res Resolver) *Registry {
	r.byMethod[method] = res
	return r
}

// Methods lists the methods with a bound resolver.
func (r *Registry) Methods() []id.DIDMethod {
	out := make([]id.DIDMethod, 0, len(r.byMethod))
	for _, m := range id.SupportedMethods() {
		if _, ok := r.byMethod[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Resolve(ctx context.Context, did id.DID) (*models.Document, error) {
	parsed, err := id.ParseDID(did.String())
	if err != nil {
		return nil, err
	}
	res, ok := r.byMethod[parsed.Method()]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "no resolver for DID method: "+parsed.Method().String())
	}
	return res.Resolve(ctx, parsed)
}
