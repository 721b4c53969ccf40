package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mealtrack/internal/database"
	"mealtrack/internal/models"
)

// Authenticator validates bearer tokens and renews the session on every
// successful call, giving a sliding inactivity window.
type Authenticator struct {
	users    UserStore
	sessions SessionStore
	tokens   *TokenCodec
	idle     time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewAuthenticator returns an Authenticator that expires sessions idle for
// longer than idle.
func NewAuthenticator(users UserStore, sessions SessionStore, tokens *TokenCodec, idle time.Duration, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		idle:     idle,
		log:      log,
		now:      time.Now,
	}
}

// Authenticate resolves token to its user. A session whose last activity is
// exactly idle ago is still valid; a millisecond later it is expired.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrForbidden
	}

	u, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	sess, err := a.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrForbidden
	}

	now := storedTime(a.now())
	if sess.LastActivity.IsZero() || now.Sub(sess.LastActivity) > a.idle {
		a.expire(ctx, sess.ID, userID)
		return nil, ErrSessionExpired
	}
	renewed, err := a.sessions.Touch(ctx, sess.ID, now.Add(-a.idle), now)
	if err != nil {
		return nil, err
	}
	if !renewed {
		a.expire(ctx, sess.ID, userID)
		return nil, ErrSessionExpired
	}
	a.log.DebugContext(ctx, "session renewed", "user_id", userID.Hex())
	return u, nil
}

// expire removes an idle session; its token is never accepted again.
func (a *Authenticator) expire(ctx context.Context, sessionID string, userID primitive.ObjectID) {
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		a.log.WarnContext(ctx, "removing expired session failed", "user_id", userID.Hex(), "error", err)
		return
	}
	a.log.InfoContext(ctx, "session expired", "user_id", userID.Hex())
}
