package core

import "context"

// requestMeta is the caller identity attached to audit entries.
type requestMeta struct {
	ip        string
	userAgent string
	actor     string
}

type metaKey struct{}

func metaFrom(ctx context.Context) requestMeta {
	m, _ := ctx.Value(metaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, set func(*requestMeta)) context.Context {
	m := metaFrom(ctx)
	set(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// ContextWithIPAddress records the client IP for audit entries.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.ip = ip })
}

// ContextWithUserAgent records the client User-Agent.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.userAgent = ua })
}

// ContextWithActor records the logged-in username, or the API key marker.
func ContextWithActor(ctx context.Context, username string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.actor = username })
}

func GetIPAddressFromContext(ctx context.Context) string { return metaFrom(ctx).ip }

func GetUserAgentFromContext(ctx context.Context) string { return metaFrom(ctx).userAgent }

// ActorFromContext returns the acting username, or "" for system actions
// such as startup seeding.
func ActorFromContext(ctx context.Context) string { return metaFrom(ctx).actor }
