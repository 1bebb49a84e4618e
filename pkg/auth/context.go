package auth

import (
	"context"

	"github.com/platinummonkey/civicbase/pkg/contextkeys"
)

// WithCaller stores the authenticated caller in ctx.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	ctx = contextkeys.WithAuth(ctx, c)
	return contextkeys.WithUserID(ctx, c.UserID)
}

// CallerFrom returns the authenticated caller stored in ctx.
func CallerFrom(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(contextkeys.AuthKey).(*Caller)
	return c, ok && c != nil
}
