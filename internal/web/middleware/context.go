package middleware

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/custodia/internal/core"
)

type actorHolderKey struct{}

type actorHolder struct {
	actor string
}

func withActorHolder(ctx context.Context, h *actorHolder) context.Context {
	return context.WithValue(ctx, actorHolderKey{}, h)
}

// withActor stores the audit actor and reports it to the request Logger.
func withActor(ctx context.Context, actor string) context.Context {
	if h, ok := ctx.Value(actorHolderKey{}).(*actorHolder); ok {
		h.actor = actor
	}
	return core.ContextWithActor(ctx, actor)
}

// RequestMetadata adds the client IP and User-Agent to the context for audit
// logging. Mount it after TrustedRealIP.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if parsed := extractIP(ip); parsed != nil {
			ip = parsed.String()
		}
		ctx := core.ContextWithIPAddress(r.Context(), ip)
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
