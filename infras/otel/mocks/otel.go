package mocks

import (
	"chalet/infras/otel"
	"context"
	"sync"
)

// Otel is an in-memory tracer. Every scope it opens is kept so tests can assert
// on the errors a call traced.
type Otel struct {
	mu     sync.Mutex
	scopes []*Scope
}

// NewScope implements otel.Otel.
func (o *Otel) NewScope(ctx context.Context, _, spanName string) (context.Context, otel.Scope) {
	scope := newScope(spanName)

	o.mu.Lock()
	o.scopes = append(o.scopes, scope)
	o.mu.Unlock()

	return ctx, scope
}

// Errors returns every error traced so far, in order.
func (o *Otel) Errors() []error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for _, scope := range o.scopes {
		errs = append(errs, scope.Errors()...)
	}

	return errs
}

// Scope returns the first scope opened under spanName, or nil.
func (o *Otel) Scope(spanName string) *Scope {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, scope := range o.scopes {
		if scope.Name == spanName {
			return scope
		}
	}

	return nil
}

func NewOtel() *Otel {
	return &Otel{}
}
