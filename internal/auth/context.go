package auth

import (
	"context"
)

type contextKey string

const authContextKey contextKey = "scribe_auth"

// AuthInfo holds authenticated identity information extracted from an API key.
type AuthInfo struct {
	KeyID             string
	OrganizationID    string
	UserID            string
	ComposeDailyLimit *int
	AssistDailyLimit  *int
	AutoProtect       bool
}

// Identity returns the quota identity for this caller. Keys tied to a user
// account share the user's allowance across all of that user's keys.
func (a *AuthInfo) Identity() string {
	if a.UserID != "" {
		return a.UserID
	}
	return a.KeyID
}

func ContextWithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authContextKey).(*AuthInfo)
	return info, ok
}
