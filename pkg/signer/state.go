package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidState is returned for malformed or tampered tokens.
	ErrInvalidState = errors.New("invalid state token")
	// ErrExpiredState is returned once a token outlives its TTL.
	ErrExpiredState = errors.New("state token expired")
)

// StateSigner issues short lived HMAC tokens binding an OAuth round trip to a user.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner constructs a signer with the provided secret and TTL.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token carrying the subject and a random nonce.
func (s *StateSigner) Issue(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).UTC()
	encodedSubject := base64.RawURLEncoding.EncodeToString([]byte(subject))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	signature := s.sign(encodedSubject, exp, nonce)
	return strings.Join([]string{encodedSubject, exp, nonce, signature}, "."), expiresAt, nil
}

// Verify validates a token and returns its subject.
func (s *StateSigner) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", ErrInvalidState
	}
	encodedSubject, exp, nonce, signature := parts[0], parts[1], parts[2], parts[3]

	expected := s.sign(encodedSubject, exp, nonce)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", ErrInvalidState
	}

	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", ErrInvalidState
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return "", ErrExpiredState
	}

	subject, err := base64.RawURLEncoding.DecodeString(encodedSubject)
	if err != nil {
		return "", ErrInvalidState
	}
	return string(subject), nil
}

func (s *StateSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
