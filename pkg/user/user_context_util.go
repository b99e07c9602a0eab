package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserIdKey contextKey = "userId"

// UserIdHeader carries the authenticated user identifier set by the identity
// layer in front of this service.
const UserIdHeader = "X-User-Id"

var ErrNoUser = errors.New("user not found")

// CurrentId retrieves the current user's identifier from the context. Returns ErrNoUser if not present.
func CurrentId(ctx context.Context) (string, error) {
	id, ok := ctx.Value(UserIdKey).(string)
	if !ok || id == "" {
		log.Trace("user not found in context")
		return "", ErrNoUser
	}
	return id, nil
}

func WithId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIdKey, id)
}

// PropagateUserId copies the X-User-Id header into the request context.
func PropagateUserId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIdHeader))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		log.Tracef("request user: %s", id)
		next.ServeHTTP(w, r.WithContext(WithId(r.Context(), id)))
	})
}
