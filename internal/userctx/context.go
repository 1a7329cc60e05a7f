package userctx

import "context"

type contextKey string

const userIDContextKey contextKey = "user_id"

// DefaultUserID владеет данными, когда авторизация отключена
const DefaultUserID = "default"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}

// UserIDOrDefault returns the authenticated user, or DefaultUserID for
// anonymous requests.
func UserIDOrDefault(ctx context.Context) string {
	if userID, ok := GetUserID(ctx); ok && userID != "" {
		return userID
	}
	return DefaultUserID
}
