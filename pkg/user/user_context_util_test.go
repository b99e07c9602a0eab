package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentId(t *testing.T) {
	_, err := CurrentId(context.Background())
	require.ErrorIs(t, err, ErrNoUser)

	id, err := CurrentId(WithId(context.Background(), "dispatcher-7"))
	require.NoError(t, err)
	assert.Equal(t, "dispatcher-7", id)
}

func TestPropagateUserId(t *testing.T) {
	var seen string
	var seenErr error
	handler := PropagateUserId(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, seenErr = CurrentId(r.Context())
	}))

	t.Run("should put header value in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(UserIdHeader, " planner-1 ")

		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.NoError(t, seenErr)
		assert.Equal(t, "planner-1", seen)
	})

	t.Run("should leave context without user when header is missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.ErrorIs(t, seenErr, ErrNoUser)
	})
}
