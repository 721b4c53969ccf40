package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"mealtrack/internal/models"
)

// SessionRepository stores one record per issued bearer token.
type SessionRepository struct {
	col *mongo.Collection
}

// NewSessionRepository returns a repository over the sessions collection of db.
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{col: db.Collection(SessionsCollection)}
}

// Replace removes every session of s.UserID and inserts s, leaving the user
// with exactly one live session.
func (r *SessionRepository) Replace(ctx context.Context, s models.Session) error {
	if err := r.DeleteByUser(ctx, s.UserID); err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get returns the session with the given ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding session: %w", err)
	}
	return &s, nil
}

// Touch advances lastActivity to now only if the session was active at or
// after cutoff. $max keeps the timestamp monotonic when requests race.
// It reports false when the session is gone or already idle past cutoff.
func (r *SessionRepository) Touch(ctx context.Context, id string, cutoff, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "lastActivity": bson.M{"$gte": cutoff}},
		bson.M{"$max": bson.M{"lastActivity": now}},
	)
	if err != nil {
		return false, fmt.Errorf("renewing session: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// DeleteByUser removes all sessions of the given user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}
	return nil
}

// Delete removes a single session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
