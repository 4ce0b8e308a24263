package core

import "context"

// ctxKey is a typed context key; each carried type gets its own key.
type ctxKey[C any] struct{}

// WithValue attaches v to ctx, keyed by its type. A later call with the
// same type shadows the earlier one.
//
//	ctx = core.WithValue(ctx, core.NewParams(core.WithThreads(4)))
func WithValue[C any](ctx context.Context, v C) context.Context {
	return context.WithValue(ctx, ctxKey[C]{}, v)
}

// Lookup retrieves the value of type C attached with WithValue.
func Lookup[C any](ctx context.Context) (C, bool) {
	if ctx == nil {
		var zero C
		return zero, false
	}
	v, ok := ctx.Value(ctxKey[C]{}).(C)
	return v, ok
}

// WithParams attaches default execution parameters to ctx. Computations
// started with this context use them unless options override them.
func WithParams(ctx context.Context, p Params) context.Context {
	return WithValue(ctx, p.Normalize())
}

// ParamsFrom returns the parameters attached with WithParams, or
// DefaultParams when there are none.
func ParamsFrom(ctx context.Context) Params {
	if p, ok := Lookup[Params](ctx); ok {
		return p
	}
	return DefaultParams()
}
