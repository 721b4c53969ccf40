package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mealtrack/internal/models"
)

// UserRepository persists user accounts and their pending codes. Every
// mutation is a single-document update so it is atomic in MongoDB.
type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

// NewUserRepository returns a repository over the users collection of db.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(UsersCollection), now: time.Now}
}

// Create inserts u and sets its generated ID.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = id
	}
	return nil
}

// FindByIdentifier returns the user registered under identifier.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"userId": identifier})
}

// FindByID returns the user with the given document ID.
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByResetToken returns the user holding the given reset correlation id.
func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"resetToken": token, "isVerified": true})
}

// FindByResetOTP returns up to limit users whose pending reset code equals
// code, latest expiry first, so unexpired codes are never crowded out by
// stale ones.
func (r *UserRepository) FindByResetOTP(ctx context.Context, code string, limit int64) ([]models.User, error) {
	return r.find(ctx, bson.M{"resetOtp.code": code},
		options.Find().SetSort(bson.D{{Key: "resetOtp.expiresAt", Value: -1}}).SetLimit(limit))
}

// FindVerified returns up to limit users currently verified for a reset.
func (r *UserRepository) FindVerified(ctx context.Context, limit int64) ([]models.User, error) {
	return r.find(ctx, bson.M{"isVerified": true}, options.Find().SetLimit(limit))
}

// SetLoginOTP stores the pending login code, replacing any previous one.
func (r *UserRepository) SetLoginOTP(ctx context.Context, id primitive.ObjectID, otp models.PendingOTP) error {
	_, err := r.updateByID(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"loginOtp": otp, "updatedAt": r.now().UTC()},
	})
	return err
}

// ConsumeLoginOTP clears the pending login code if it still equals code. It
// reports false when another request consumed or replaced it first.
func (r *UserRepository) ConsumeLoginOTP(ctx context.Context, id primitive.ObjectID, code string) (bool, error) {
	return r.updateByID(ctx, bson.M{"_id": id, "loginOtp.code": code}, bson.M{
		"$unset": bson.M{"loginOtp": ""},
		"$set":   bson.M{"updatedAt": r.now().UTC()},
	})
}

// SetResetOTP stores a fresh reset code and drops any earlier verification
// so a stale reset token cannot be reused.
func (r *UserRepository) SetResetOTP(ctx context.Context, id primitive.ObjectID, otp models.PendingOTP) error {
	_, err := r.updateByID(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"resetOtp": otp, "isVerified": false, "updatedAt": r.now().UTC()},
		"$unset": bson.M{"resetToken": ""},
	})
	return err
}

// MarkResetVerified consumes the reset code and marks the user verified for
// a password change under resetToken.
func (r *UserRepository) MarkResetVerified(ctx context.Context, id primitive.ObjectID, code, resetToken string) (bool, error) {
	return r.updateByID(ctx, bson.M{"_id": id, "resetOtp.code": code}, bson.M{
		"$set":   bson.M{"isVerified": true, "resetToken": resetToken, "updatedAt": r.now().UTC()},
		"$unset": bson.M{"resetOtp": ""},
	})
}

// UpdatePassword writes the new hash and clears the verification state in
// the same update. It only applies to a user that is still verified.
func (r *UserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) (bool, error) {
	return r.updateByID(ctx, bson.M{"_id": id, "isVerified": true}, bson.M{
		"$set":   bson.M{"password": hash, "isVerified": false, "updatedAt": r.now().UTC()},
		"$unset": bson.M{"resetToken": "", "sessionId": ""},
	})
}

// SetSessionID records the most recently issued session on the user.
func (r *UserRepository) SetSessionID(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	_, err := r.updateByID(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"sessionId": sessionID, "updatedAt": r.now().UTC()},
	})
	return err
}

// RecordFailedAttempt counts one failed login for the user. When the count
// reaches limit the account is locked until lockUntil and the count restarts.
// It reports true only to the call that applied the lock.
func (r *UserRepository) RecordFailedAttempt(ctx context.Context, id primitive.ObjectID, limit int, lockUntil time.Time) (bool, error) {
	var u models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"failedAttempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("counting failed attempt: %w", err)
	}
	if u.FailedAttempts < limit {
		return false, nil
	}
	return r.updateByID(ctx, bson.M{"_id": id, "failedAttempts": bson.M{"$gte": limit}}, bson.M{
		"$set": bson.M{"failedAttempts": 0, "lockUntil": lockUntil, "updatedAt": r.now().UTC()},
	})
}

// ClearFailedAttempts resets the failure count and lifts any lock.
func (r *UserRepository) ClearFailedAttempts(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.updateByID(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"failedAttempts": 0},
		"$unset": bson.M{"lockUntil": ""},
	})
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.User, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding users: %w", err)
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) updateByID(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("updating user: %w", err)
	}
	return res.MatchedCount > 0, nil
}
