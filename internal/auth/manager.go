package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Session is the identity carried by a validated token.
type Session struct {
	OfficerID int64
	Expires   time.Time
}

// Manager signs and validates portal session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a Manager with the provided secret and default session TTL.
func NewManager(secret string, ttl time.Duration) *Manager {
	if secret == "" {
		panic("auth manager requires non-empty secret")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// IssueToken issues a signed session token for the officer.
func (m *Manager) IssueToken(officerID int64) (string, time.Time) {
	expires := time.Now().Add(m.ttl)
	payload := fmt.Sprintf("%d|%d", officerID, expires.Unix())
	sig := m.sign([]byte(payload))
	token := fmt.Sprintf("%s.%s", base64.RawURLEncoding.EncodeToString([]byte(payload)), base64.RawURLEncoding.EncodeToString(sig))
	return token, expires
}

// ValidateToken checks the signature and expiry and returns the session.
func (m *Manager) ValidateToken(token string) (Session, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Session{}, errors.New("invalid token format")
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Session{}, errors.New("invalid token payload")
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Session{}, errors.New("invalid token signature")
	}
	if !hmac.Equal(sigBytes, m.sign(payloadBytes)) {
		return Session{}, errors.New("signature mismatch")
	}
	payload := string(payloadBytes)
	sep := strings.LastIndex(payload, "|")
	if sep == -1 {
		return Session{}, errors.New("invalid payload")
	}
	officerID, err := strconv.ParseInt(payload[:sep], 10, 64)
	if err != nil {
		return Session{}, errors.New("invalid subject")
	}
	expiry, err := strconv.ParseInt(payload[sep+1:], 10, 64)
	if err != nil {
		return Session{}, errors.New("invalid expiry")
	}
	if time.Now().Unix() > expiry {
		return Session{}, errors.New("token expired")
	}
	return Session{OfficerID: officerID, Expires: time.Unix(expiry, 0)}, nil
}

func (m *Manager) sign(payload []byte) []byte {
	h := hmac.New(sha256.New, m.secret)
	h.Write(payload)
	return h.Sum(nil)
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a candidate password against a stored hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
