// Package auth implements the password + emailed OTP login flow, the
// password reset flow and bearer session validation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"mealtrack/internal/database"
	"mealtrack/internal/models"
	"mealtrack/internal/util"
)

// UserStore is the credential store the flows run against. Implementations
// must apply each method as one atomic single-document operation.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	FindByResetOTP(ctx context.Context, code string, limit int64) ([]models.User, error)
	FindVerified(ctx context.Context, limit int64) ([]models.User, error)
	SetLoginOTP(ctx context.Context, id primitive.ObjectID, otp models.PendingOTP) error
	ConsumeLoginOTP(ctx context.Context, id primitive.ObjectID, code string) (bool, error)
	SetResetOTP(ctx context.Context, id primitive.ObjectID, otp models.PendingOTP) error
	MarkResetVerified(ctx context.Context, id primitive.ObjectID, code, resetToken string) (bool, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) (bool, error)
	SetSessionID(ctx context.Context, id primitive.ObjectID, sessionID string) error
	RecordFailedAttempt(ctx context.Context, id primitive.ObjectID, limit int, lockUntil time.Time) (bool, error)
	ClearFailedAttempts(ctx context.Context, id primitive.ObjectID) error
}

// SessionStore keeps one record per issued token.
type SessionStore interface {
	Replace(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Touch(ctx context.Context, id string, cutoff, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// Notifier delivers a plain-text message to an email address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Options tune the service. Zero values fall back to defaults.
type Options struct {
	DefaultClientID string
	DefaultRoleID   string
	HashCost        int

	// MaxFailedAttempts wrong passwords or login codes lock the account for
	// LockDuration.
	MaxFailedAttempts int
	LockDuration      time.Duration

	Logger *slog.Logger
}

const (
	defaultMaxFailedAttempts = 5
	defaultLockDuration      = 15 * time.Minute
)

// Service runs the signup, login and password reset state transitions.
type Service struct {
	users    UserStore
	sessions SessionStore
	notifier Notifier
	otps     *OTPIssuer
	tokens   *TokenCodec

	clientID string
	roleID   string
	hashCost int
	maxFails int
	lockFor  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires a Service.
func NewService(users UserStore, sessions SessionStore, notifier Notifier, otps *OTPIssuer, tokens *TokenCodec, opts Options) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		otps:     otps,
		tokens:   tokens,
		clientID: opts.DefaultClientID,
		roleID:   opts.DefaultRoleID,
		hashCost: opts.HashCost,
		maxFails: opts.MaxFailedAttempts,
		lockFor:  opts.LockDuration,
		log:      opts.Logger,
		now:      time.Now,
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.maxFails <= 0 {
		s.maxFails = defaultMaxFailedAttempts
	}
	if s.lockFor <= 0 {
		s.lockFor = defaultLockDuration
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// LoginResult is returned once the login OTP has been sent.
type LoginResult struct {
	OTP          string
	DisplayName  string
	Identifier   string
	UserRecordID string
}

// SessionResult is returned by a successful OTP verification.
type SessionResult struct {
	Token       string
	DisplayName string
	ClientID    string
	RoleID      string
	SuperAdmin  bool
}

// Signup registers identifier with password.
func (s *Service) Signup(ctx context.Context, identifier, password, displayName string) error {
	identifier = util.NormalizeIdentifier(identifier)
	if !util.ValidateEmail(identifier) {
		return fmt.Errorf("%w: userId must be an email address", ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}

	hash, err := HashPassword(password, s.hashCost)
	if err != nil {
		return err
	}
	u := &models.User{
		Identifier:   identifier,
		PasswordHash: hash,
		DisplayName:  displayName,
		ClientID:     s.clientID,
		RoleID:       s.roleID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return ErrConflict
		}
		return err
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID.Hex())
	return nil
}

// Login checks the password and emails a fresh login OTP. An unknown
// identifier and a wrong password produce the same error. A locked account
// is rejected before the password is checked.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = util.NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			burnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	now := storedTime(s.now())
	if u.Locked(now) {
		return nil, ErrAccountLocked
	}
	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.recordFailure(ctx, u, now)
		return nil, ErrInvalidCredentials
	}

	pending, err := s.otps.Issue()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetLoginOTP(ctx, u.ID, pending); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Your OTP code is: %s. It will expire in %s.", pending.Code, humanDuration(s.otps.TTL()))
	if err := s.notifier.Send(ctx, u.Identifier, "Your OTP Code", body); err != nil {
		s.log.ErrorContext(ctx, "sending login OTP failed", "user_id", u.ID.Hex(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNotification, err)
	}
	s.log.InfoContext(ctx, "login OTP sent", "user_id", u.ID.Hex())

	return &LoginResult{
		OTP:          pending.Code,
		DisplayName:  u.Name(),
		Identifier:   u.Identifier,
		UserRecordID: u.ID.Hex(),
	}, nil
}

// VerifyOTP consumes the login OTP and opens a new session, replacing any
// session the user already had. Wrong codes count toward the account lock.
func (s *Service) VerifyOTP(ctx context.Context, identifier, code string) (*SessionResult, error) {
	identifier = util.NormalizeIdentifier(identifier)
	if identifier == "" || code == "" {
		return nil, fmt.Errorf("%w: userId and otpCode are required", ErrValidation)
	}

	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}
	now := storedTime(s.now())
	if u.Locked(now) {
		return nil, ErrAccountLocked
	}
	if err := CheckOTP(u.LoginOTP, code, now); err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			s.recordFailure(ctx, u, now)
		}
		return nil, err
	}
	consumed, err := s.users.ConsumeLoginOTP(ctx, u.ID, code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidOTP
	}

	if u.FailedAttempts > 0 || !u.LockUntil.IsZero() {
		if err := s.users.ClearFailedAttempts(ctx, u.ID); err != nil {
			s.log.WarnContext(ctx, "clearing failed attempts failed", "user_id", u.ID.Hex(), "error", err)
		}
	}

	token, err := s.openSession(ctx, u.ID, now)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "session opened", "user_id", u.ID.Hex())

	res := &SessionResult{
		Token:       token,
		DisplayName: u.Name(),
		ClientID:    u.ClientID,
		RoleID:      u.RoleID,
		SuperAdmin:  u.SuperAdmin,
	}
	if res.ClientID == "" {
		res.ClientID = s.clientID
	}
	if res.RoleID == "" {
		res.RoleID = s.roleID
	}
	return res, nil
}

// recordFailure counts a failed attempt for u and, when that locks the
// account, alerts the owner by email.
func (s *Service) recordFailure(ctx context.Context, u *models.User, now time.Time) {
	until := storedTime(now.Add(s.lockFor))
	locked, err := s.users.RecordFailedAttempt(ctx, u.ID, s.maxFails, until)
	if err != nil {
		s.log.WarnContext(ctx, "recording failed attempt failed", "user_id", u.ID.Hex(), "error", err)
		return
	}
	if !locked {
		return
	}
	s.log.WarnContext(ctx, "account locked after repeated failures", "user_id", u.ID.Hex(), "until", until)

	body := fmt.Sprintf("Dear %s,\n\nMultiple failed login attempts have been detected on your account. "+
		"Your account has been temporarily locked until %s for security reasons.\n\n"+
		"If this wasn't you, please reset your password.", u.Name(), until.Format(time.RFC1123))
	if err := s.notifier.Send(ctx, u.Identifier, "Alert: Suspicious Login Attempts Detected", body); err != nil {
		s.log.ErrorContext(ctx, "sending lock alert failed", "user_id", u.ID.Hex(), "error", err)
	}
}

func (s *Service) openSession(ctx context.Context, userID primitive.ObjectID, now time.Time) (string, error) {
	sess := models.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    storedTime(now),
		LastActivity: storedTime(now),
	}
	token, err := s.tokens.Issue(userID, sess.ID, now)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	if err := s.sessions.Replace(ctx, sess); err != nil {
		return "", err
	}
	if err := s.users.SetSessionID(ctx, userID, sess.ID); err != nil {
		return "", err
	}
	return token, nil
}

// ForgotPassword emails a reset OTP. The returned code mirrors what was sent.
func (s *Service) ForgotPassword(ctx context.Context, identifier string) (string, error) {
	identifier = util.NormalizeIdentifier(identifier)
	if identifier == "" {
		return "", fmt.Errorf("%w: userId is required", ErrValidation)
	}

	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	pending, err := s.otps.Issue()
	if err != nil {
		return "", err
	}
	if err := s.users.SetResetOTP(ctx, u.ID, pending); err != nil {
		return "", err
	}
	body := fmt.Sprintf("Your OTP for password reset is: %s. This OTP will expire in %s.", pending.Code, humanDuration(s.otps.TTL()))
	if err := s.notifier.Send(ctx, u.Identifier, "Password Reset OTP", body); err != nil {
		s.log.ErrorContext(ctx, "sending reset OTP failed", "user_id", u.ID.Hex(), "error", err)
		return "", fmt.Errorf("%w: %v", ErrNotification, err)
	}
	s.log.InfoContext(ctx, "reset OTP sent", "user_id", u.ID.Hex())
	return pending.Code, nil
}

// maxResetCandidates bounds the lookup of users sharing a reset code.
const maxResetCandidates = 16

// VerifyResetOTP checks a reset code and marks the user verified for a
// password change. The returned reset token scopes the following
// ResetPassword call to this user.
//
// With an identifier the code is checked against that user only. Without
// one, the code must belong to exactly one user with an unexpired reset
// code; otherwise ErrAmbiguousReset is returned.
func (s *Service) VerifyResetOTP(ctx context.Context, identifier, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: OTP is required", ErrValidation)
	}
	now := storedTime(s.now())

	var u *models.User
	if identifier = util.NormalizeIdentifier(identifier); identifier != "" {
		found, err := s.users.FindByIdentifier(ctx, identifier)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return "", ErrInvalidOTP
			}
			return "", err
		}
		if found.Locked(now) {
			return "", ErrAccountLocked
		}
		if err := CheckOTP(found.ResetOTP, code, now); err != nil {
			if errors.Is(err, ErrInvalidOTP) {
				s.recordFailure(ctx, found, now)
			}
			return "", err
		}
		u = found
	} else {
		candidates, err := s.users.FindByResetOTP(ctx, code, maxResetCandidates)
		if err != nil {
			return "", err
		}
		var live []models.User
		for _, c := range candidates {
			if CheckOTP(c.ResetOTP, code, now) == nil {
				live = append(live, c)
			}
		}
		switch {
		case len(candidates) == 0:
			return "", ErrInvalidOTP
		case len(live) == 0:
			return "", ErrOTPExpired
		case len(live) > 1:
			s.log.WarnContext(ctx, "reset OTP shared by several users", "matches", len(live))
			return "", ErrAmbiguousReset
		}
		u = &live[0]
	}

	resetToken := uuid.NewString()
	ok, err := s.users.MarkResetVerified(ctx, u.ID, code, resetToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidOTP
	}
	s.log.InfoContext(ctx, "reset OTP verified", "user_id", u.ID.Hex())
	return resetToken, nil
}

// ResetPassword stores a new password for the verified user and clears the
// verification. Without a reset token exactly one user may be verified.
// All sessions of the user are revoked.
func (s *Service) ResetPassword(ctx context.Context, resetToken, password, confirm string) error {
	if password == "" || confirm == "" {
		return fmt.Errorf("%w: both password fields are required", ErrValidation)
	}
	if password != confirm {
		return ErrPasswordMismatch
	}

	var u *models.User
	if resetToken != "" {
		found, err := s.users.FindByResetToken(ctx, resetToken)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		u = found
	} else {
		verified, err := s.users.FindVerified(ctx, 2)
		if err != nil {
			return err
		}
		switch len(verified) {
		case 0:
			return ErrNotFound
		case 1:
			u = &verified[0]
		default:
			s.log.WarnContext(ctx, "password reset without token while several users are verified")
			return ErrAmbiguousReset
		}
	}

	hash, err := HashPassword(password, s.hashCost)
	if err != nil {
		return err
	}
	ok, err := s.users.UpdatePassword(ctx, u.ID, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.sessions.DeleteByUser(ctx, u.ID); err != nil {
		s.log.WarnContext(ctx, "revoking sessions after password reset failed", "user_id", u.ID.Hex(), "error", err)
	}
	s.log.InfoContext(ctx, "password reset", "user_id", u.ID.Hex())
	return nil
}

// storedTime rounds t down to the millisecond precision MongoDB keeps, so a
// value compares the same before and after a round trip.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func humanDuration(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
