package middleware

import (
	"context"
	"net/http"
	"strings"

	"transcriptionapi/pkg/apperror"
	"transcriptionapi/pkg/identity"
	"transcriptionapi/pkg/logger"
	"transcriptionapi/pkg/response"
)

type contextKey string

const UserIDKey contextKey = "userID"

const bearerPrefix = "Bearer "

// UserID returns the authenticated caller stored by Authenticate.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}

// WithUserID stores uid the way Authenticate does.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UserIDKey, uid)
}

// Authenticate requires "Authorization: Bearer <token>" and resolves it with v.
func Authenticate(v identity.Verifier) func(http.Handler) http.Handler {
	return authenticate(v, false)
}

// AuthenticateSocket also accepts ?token=, because the browser WebSocket API
// cannot set custom headers.
func AuthenticateSocket(v identity.Verifier) func(http.Handler) http.Handler {
	return authenticate(v, true)
}

func authenticate(v identity.Verifier, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ""
			if allowQuery {
				tokenString = r.URL.Query().Get("token")
			}

			if tokenString == "" {
				var err error
				tokenString, err = bearerToken(r.Header.Get("Authorization"))
				if err != nil {
					response.Error(w, err)
					return
				}
			}

			userID, err := v.Verify(r.Context(), tokenString)
			if err != nil {
				logger.Sugar.Infof("Invalid token: %v", err)
				response.Error(w, apperror.Unauthenticated("Invalid token: "+err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// bearerToken rejects anything that is not a well-formed bearer header
// before the verifier is consulted.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperror.Unauthenticated("Missing authorization header")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperror.Unauthenticated("Invalid authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", apperror.Unauthenticated("Invalid authorization header format")
	}
	return token, nil
}
