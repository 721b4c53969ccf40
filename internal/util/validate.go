package util

import (
	"net/mail"
	"strings"
)

// ValidateEmail reports whether email is a bare address such as a@x.com.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || strings.ContainsAny(email, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1
}

// NormalizeIdentifier trims surrounding whitespace and lower-cases the
// address so that signup and login agree on a single key.
func NormalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
