package actorctx

import "context"

type ctxKey string

const (
	keyUserID    ctxKey = "actor.user_id"
	keyRequestID ctxKey = "actor.request_id"
)

// WithUserID records who is acting on this request, as verified by the auth
// middleware. Services read it back for logging only.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}
