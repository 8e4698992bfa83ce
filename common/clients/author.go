package clients

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader names the tag author on every explorer request
const UserHeader = "X-User-ID"

type authorKey struct{}

// WithUserID records who is editing tags. A blank user leaves ctx
// anonymous.
func WithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, authorKey{}, userID)
}

// GetUserID returns the author set by WithUserID
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(authorKey{}).(string)
	return userID, ok
}

// CreatedBy is the created_by value for a tag added under ctx; nil when
// anonymous
func CreatedBy(ctx context.Context) *string {
	if userID, ok := GetUserID(ctx); ok {
		return &userID
	}
	return nil
}

func setUserHeader(ctx context.Context, h http.Header) (string, bool) {
	userID, ok := GetUserID(ctx)
	if ok {
		h.Set(UserHeader, userID)
	}
	return userID, ok
}
