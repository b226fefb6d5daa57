package services

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

const otpTTL = 10 * time.Minute

// GenerateOTP returns a 6-digit one-time code and its expiry.
func GenerateOTP() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), time.Now().Add(otpTTL), nil
}

// VerifyOTP checks a submitted code against the stored one in constant time
// and rejects expired codes.
func VerifyOTP(stored, submitted string, expiresAt *time.Time) bool {
	if stored == "" || expiresAt == nil || time.Now().After(*expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
