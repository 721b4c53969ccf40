// Package authtest provides in-memory stores and a recording notifier for
// tests that drive the auth flows without MongoDB or a mail server.
package authtest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mealtrack/internal/database"
	"mealtrack/internal/models"
)

// Users is an in-memory auth.UserStore. Each method holds the lock for its
// whole update, matching the single-document atomicity of the Mongo
// repository.
type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{users: map[primitive.ObjectID]*models.User{}}
}

func (m *Users) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Identifier == u.Identifier {
			return database.ErrDuplicate
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *Users) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	return m.findOne(func(u *models.User) bool { return u.Identifier == identifier })
}

func (m *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findOne(func(u *models.User) bool { return u.ID == id })
}

func (m *Users) FindByResetToken(_ context.Context, token string) (*models.User, error) {
	return m.findOne(func(u *models.User) bool { return u.Verified && u.ResetToken == token })
}

// FindByResetOTP orders matches by latest expiry, like the Mongo query.
func (m *Users) FindByResetOTP(_ context.Context, code string, limit int64) ([]models.User, error) {
	out := m.find(func(u *models.User) bool { return u.ResetOTP != nil && u.ResetOTP.Code == code }, math.MaxInt64)
	sort.Slice(out, func(i, j int) bool { return out[i].ResetOTP.ExpiresAt.After(out[j].ResetOTP.ExpiresAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Users) FindVerified(_ context.Context, limit int64) ([]models.User, error) {
	return m.find(func(u *models.User) bool { return u.Verified }, limit), nil
}

func (m *Users) SetLoginOTP(_ context.Context, id primitive.ObjectID, otp models.PendingOTP) error {
	m.update(id, func(u *models.User) bool { u.LoginOTP = &otp; return true })
	return nil
}

func (m *Users) ConsumeLoginOTP(_ context.Context, id primitive.ObjectID, code string) (bool, error) {
	return m.update(id, func(u *models.User) bool {
		if u.LoginOTP == nil || u.LoginOTP.Code != code {
			return false
		}
		u.LoginOTP = nil
		return true
	}), nil
}

func (m *Users) SetResetOTP(_ context.Context, id primitive.ObjectID, otp models.PendingOTP) error {
	m.update(id, func(u *models.User) bool {
		u.ResetOTP = &otp
		u.Verified = false
		u.ResetToken = ""
		return true
	})
	return nil
}

func (m *Users) MarkResetVerified(_ context.Context, id primitive.ObjectID, code, resetToken string) (bool, error) {
	return m.update(id, func(u *models.User) bool {
		if u.ResetOTP == nil || u.ResetOTP.Code != code {
			return false
		}
		u.ResetOTP = nil
		u.Verified = true
		u.ResetToken = resetToken
		return true
	}), nil
}

func (m *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string) (bool, error) {
	return m.update(id, func(u *models.User) bool {
		if !u.Verified {
			return false
		}
		u.PasswordHash = hash
		u.Verified = false
		u.ResetToken = ""
		u.SessionID = ""
		return true
	}), nil
}

func (m *Users) SetSessionID(_ context.Context, id primitive.ObjectID, sessionID string) error {
	m.update(id, func(u *models.User) bool { u.SessionID = sessionID; return true })
	return nil
}

func (m *Users) RecordFailedAttempt(_ context.Context, id primitive.ObjectID, limit int, lockUntil time.Time) (bool, error) {
	return m.update(id, func(u *models.User) bool {
		u.FailedAttempts++
		if u.FailedAttempts < limit {
			return false
		}
		u.FailedAttempts = 0
		u.LockUntil = lockUntil
		return true
	}), nil
}

func (m *Users) ClearFailedAttempts(_ context.Context, id primitive.ObjectID) error {
	m.update(id, func(u *models.User) bool {
		u.FailedAttempts = 0
		u.LockUntil = time.Time{}
		return true
	})
	return nil
}

func (m *Users) findOne(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *Users) find(match func(*models.User) bool, limit int64) []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.User
	for _, u := range m.users {
		if match(u) && int64(len(out)) < limit {
			out = append(out, *u)
		}
	}
	return out
}

// update applies fn to the stored user and reports its result. A missing
// user reports false.
func (m *Users) update(id primitive.ObjectID, fn func(u *models.User) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false
	}
	return fn(u)
}

// Sessions is an in-memory auth.SessionStore.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

// NewSessions returns an empty store.
func NewSessions() *Sessions {
	return &Sessions{sessions: map[string]models.Session{}}
}

func (m *Sessions) Replace(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.sessions {
		if existing.UserID == s.UserID {
			delete(m.sessions, id)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *Sessions) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (m *Sessions) Touch(_ context.Context, id string, cutoff, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.LastActivity.Before(cutoff) {
		return false, nil
	}
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
	m.sessions[id] = s
	return true, nil
}

func (m *Sessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Sessions) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// Count returns the number of stored sessions.
func (m *Sessions) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Mail is one message captured by Notifier.
type Mail struct {
	To, Subject, Body string
}

// Notifier records sent messages. A non-nil Err fails every Send.
type Notifier struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

// Send records the message unless Err is set.
func (n *Notifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, Mail{To: to, Subject: subject, Body: body})
	return nil
}

// Last returns the most recent message, or the zero Mail if none was sent.
func (n *Notifier) Last() Mail {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return Mail{}
	}
	return n.sent[len(n.sent)-1]
}
