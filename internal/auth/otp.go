package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/pquerna/otp"

	"mealtrack/internal/models"
)

// OTPIssuer hands out short numeric codes with an absolute expiry. Login and
// password reset share one issuer but store their codes separately.
type OTPIssuer struct {
	digits otp.Digits
	ttl    time.Duration
	now    func() time.Time
	rand   io.Reader
}

// NewOTPIssuer returns an issuer of codes with the given number of digits,
// valid for ttl after issue.
func NewOTPIssuer(digits otp.Digits, ttl time.Duration) *OTPIssuer {
	return &OTPIssuer{digits: digits, ttl: ttl, now: time.Now, rand: rand.Reader}
}

// Issue draws a code uniformly from the range of numbers with exactly the
// configured digit count (1000-9999 for four digits), so codes never start
// with a zero.
func (i *OTPIssuer) Issue() (models.PendingOTP, error) {
	low := int64(1)
	for n := 1; n < i.digits.Length(); n++ {
		low *= 10
	}
	v, err := rand.Int(i.rand, big.NewInt(9*low))
	if err != nil {
		return models.PendingOTP{}, fmt.Errorf("generating OTP: %w", err)
	}
	return models.PendingOTP{
		Code:      i.digits.Format(int32(low + v.Int64())),
		ExpiresAt: storedTime(i.now().Add(i.ttl)),
	}, nil
}

// TTL returns how long issued codes stay valid.
func (i *OTPIssuer) TTL() time.Duration { return i.ttl }

// CheckOTP validates code against the pending one at time now. A code is
// accepted up to and including its expiry instant, compared at millisecond
// precision.
func CheckOTP(pending *models.PendingOTP, code string, now time.Time) error {
	if pending == nil || code == "" ||
		subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	if storedTime(now).After(pending.ExpiresAt) {
		return ErrOTPExpired
	}
	return nil
}
