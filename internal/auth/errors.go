package auth

import "errors"

// Errors returned by Service and Authenticator. The api package maps each
// one to an HTTP status.
var (
	ErrValidation         = errors.New("invalid request")
	ErrConflict           = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("username/password is invalid")
	ErrInvalidOTP         = errors.New("OTP is invalid or expired")
	ErrOTPExpired         = errors.New("OTP expired")
	ErrNotFound           = errors.New("user not found")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrAmbiguousReset     = errors.New("more than one password reset is pending, verify again with your user id")
	ErrNotification       = errors.New("error sending OTP")
	ErrAccountLocked      = errors.New("account is temporarily locked after repeated failed attempts")

	ErrUnauthenticated = errors.New("access denied, no token provided")
	ErrSessionExpired  = errors.New("token expired due to inactivity")
	ErrForbidden       = errors.New("invalid token")
)
