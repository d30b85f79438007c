package middlewares

import "github.com/geocoder89/storefront/internal/http/handlers"

// gin context keys
const (
	CtxRequestID = handlers.RequestIDKey
	CtxUserID    = "auth.user_id"
	CtxEmail     = "auth.email"
	CtxRole      = "auth.role"
)
