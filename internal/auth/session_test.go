package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthenticate_SlidingWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "a@example.com", "pw")
	token := h.login(t, "a@example.com", "pw")

	u, err := h.authn.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Identifier)

	// Activity every 59 minutes keeps the session alive well past an hour.
	for i := 0; i < 3; i++ {
		h.advance(59 * time.Minute)
		_, err = h.authn.Authenticate(ctx, token)
		require.NoError(t, err, "request %d", i)
	}

	h.advance(61 * time.Minute)
	_, err = h.authn.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// Expiry is final.
	h.advance(-30 * time.Minute)
	_, err = h.authn.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthenticate_Boundary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "a@example.com", "pw")
	token := h.login(t, "a@example.com", "pw")

	h.advance(time.Hour)
	_, err := h.authn.Authenticate(ctx, token)
	require.NoError(t, err)

	h.advance(time.Hour + time.Millisecond)
	_, err = h.authn.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthenticate_NewLoginReplacesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signup(t, "a@example.com", "pw")

	first := h.login(t, "a@example.com", "pw")
	second := h.login(t, "a@example.com", "pw")
	assert.Equal(t, 1, h.sessions.Count())

	_, err := h.authn.Authenticate(ctx, first)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = h.authn.Authenticate(ctx, second)
	assert.NoError(t, err)
}

func TestAuthenticate_Rejects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.authn.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = h.authn.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrForbidden)

	orphan, err := NewTokenCodec("test-secret").Issue(primitive.NewObjectID(), "sess", h.clock)
	require.NoError(t, err)
	_, err = h.authn.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, ErrForbidden)

	h.signup(t, "a@example.com", "pw")
	u, err := h.users.FindByIdentifier(ctx, "a@example.com")
	require.NoError(t, err)
	unknownSession, err := NewTokenCodec("test-secret").Issue(u.ID, "no-such-session", h.clock)
	require.NoError(t, err)
	_, err = h.authn.Authenticate(ctx, unknownSession)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
