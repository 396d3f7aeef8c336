package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"recordstore/internal/record/model"
	"recordstore/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const CallerKey contextKey = "caller"

// Caller returns the authenticated principal stored by AuthMiddleware, or "" when there is none.
func Caller(ctx context.Context) model.Principal {
	caller, _ := ctx.Value(CallerKey).(model.Principal)
	return caller
}

// WithCaller stores caller in ctx the way AuthMiddleware does.
func WithCaller(ctx context.Context, caller model.Principal) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// AuthMiddleware validates an HMAC-signed JWT and puts its subject in the request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// For WebSockets, tokens are often passed in the query string
			// because the browser's WebSocket API doesn't support custom headers.
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}

			if tokenString == "" {
				http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				logger.Sugar.Warnf("Invalid token: %v", err)
				http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
				return
			}

			subject, err := token.Claims.GetSubject()
			if err != nil || subject == "" {
				http.Error(w, "Unauthorized: Subject (sub) claim is missing or invalid", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), model.Principal(subject))))
		})
	}
}
