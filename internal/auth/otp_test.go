package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealtrack/internal/models"
)

func TestOTPIssuer_FourDigitRange(t *testing.T) {
	issuer := NewOTPIssuer(otp.Digits(4), 5*time.Minute)
	for i := 0; i < 500; i++ {
		p, err := issuer.Issue()
		require.NoError(t, err)
		require.Len(t, p.Code, 4)
		n, err := strconv.Atoi(p.Code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
	}
}

func TestOTPIssuer_SixDigits(t *testing.T) {
	p, err := NewOTPIssuer(otp.DigitsSix, time.Minute).Issue()
	require.NoError(t, err)
	assert.Len(t, p.Code, 6)
	assert.NotEqual(t, byte('0'), p.Code[0])
}

func TestOTPIssuer_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	issuer := NewOTPIssuer(otp.Digits(4), 5*time.Minute)
	issuer.now = func() time.Time { return now }

	p, err := issuer.Issue()
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), p.ExpiresAt)
	assert.Equal(t, 5*time.Minute, issuer.TTL())
}

func TestCheckOTP(t *testing.T) {
	issued := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	pending := &models.PendingOTP{Code: "4321", ExpiresAt: issued.Add(5 * time.Minute)}

	tests := []struct {
		name    string
		pending *models.PendingOTP
		code    string
		at      time.Time
		want    error
	}{
		{"valid", pending, "4321", issued.Add(time.Minute), nil},
		{"valid at expiry instant", pending, "4321", issued.Add(5 * time.Minute), nil},
		{"expired", pending, "4321", issued.Add(5*time.Minute + time.Millisecond), ErrOTPExpired},
		{"wrong code", pending, "1234", issued, ErrInvalidOTP},
		{"empty code", pending, "", issued, ErrInvalidOTP},
		{"nothing pending", nil, "4321", issued, ErrInvalidOTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOTP(tt.pending, tt.code, tt.at)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
