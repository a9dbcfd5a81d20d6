package domain

import "context"

type actorKey struct{}

type tenantKey struct{}

// WithActor returns a context carrying the acting user, recorded by the
// persistence layers in the audit fields of every mutation.
func WithActor(ctx context.Context, actor UserID) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom extracts the acting user from the context, or nil when no actor
// is attached (system-initiated operations).
func ActorFrom(ctx context.Context) *UserID {
	if actor, ok := ctx.Value(actorKey{}).(UserID); ok {
		return &actor
	}
	return nil
}

// WithTenant returns a context carrying the tenant scope.
func WithTenant(ctx context.Context, tenant TenantID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// TenantFrom extracts the tenant scope from the context, or "" when the
// request is not tenant-scoped.
func TenantFrom(ctx context.Context) TenantID {
	if tenant, ok := ctx.Value(tenantKey{}).(TenantID); ok {
		return tenant
	}
	return ""
}
