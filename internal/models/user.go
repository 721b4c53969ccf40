package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PendingOTP is a single-use code waiting to be verified.
type PendingOTP struct {
	Code      string    `bson:"code"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// User represents a registered canteen dashboard user.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Identifier   string             `bson:"userId"`
	PasswordHash string             `bson:"password"`
	DisplayName  string             `bson:"displayName,omitempty"`
	ClientID     string             `bson:"clientId,omitempty"`
	RoleID       string             `bson:"roleId,omitempty"`
	SuperAdmin   bool               `bson:"superAdmin"`

	// Login and password-reset codes live in separate fields so that the two
	// flows never overwrite each other.
	LoginOTP *PendingOTP `bson:"loginOtp,omitempty"`
	ResetOTP *PendingOTP `bson:"resetOtp,omitempty"`

	Verified   bool   `bson:"isVerified"`
	ResetToken string `bson:"resetToken,omitempty"`
	SessionID  string `bson:"sessionId,omitempty"`

	// FailedAttempts counts wrong passwords and codes since the last
	// successful login. Reaching the limit sets LockUntil and restarts the
	// count.
	FailedAttempts int       `bson:"failedAttempts"`
	LockUntil      time.Time `bson:"lockUntil,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Locked reports whether the account is locked at now.
func (u *User) Locked(now time.Time) bool {
	return !u.LockUntil.IsZero() && now.Before(u.LockUntil)
}

// Name returns the display name, falling back to the identifier.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Identifier
}
