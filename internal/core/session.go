package core

import "context"

// SessionStore holds per-user wizard state between requests.
//
// A token identifies one user session; each token owns independent state per
// flow key. Implementations serialize Update calls on the same token.
type SessionStore interface {
	// GetOrCreateToken returns the token bound to sessionID, minting one on
	// first use. The token is stable for the life of the session.
	GetOrCreateToken(ctx context.Context, sessionID string) (string, error)

	// Load returns a copy of the flow state, or the zero state when absent.
	Load(ctx context.Context, token, flow string) (FlowState, error)

	// Update applies fn to the flow state under the token lock, creating the
	// state lazily. The state is saved only when fn returns nil.
	Update(ctx context.Context, token, flow string, fn func(*FlowState) error) error

	// Clear drops one flow, or every flow of the token when flow is "".
	Clear(ctx context.Context, token, flow string) error
}
