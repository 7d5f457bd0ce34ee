// Package auth tracks the signed-in user. Identity comes from HS256 JWTs
// whose subject is the user id.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("token secret not configured")
)

// Session holds the current user id and fans out user changes.
type Session struct {
	mu     sync.RWMutex
	userID string
	secret []byte
	subs   []chan string
	logger *slog.Logger
}

// NewSession creates a signed-out session that verifies tokens with secret.
func NewSession(secret []byte) *Session {
	return &Session{
		secret: secret,
		logger: slog.Default().With("component", "auth"),
	}
}

// CurrentUserID returns the signed-in user id, or "" when signed out.
func (s *Session) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SignIn verifies token and makes its subject the current user.
func (s *Session) SignIn(token string) (string, error) {
	uid, err := s.Verify(token)
	if err != nil {
		return "", err
	}
	s.SetUser(uid)
	return uid, nil
}

// Verify checks token's signature and expiry and returns its subject.
func (s *Session) Verify(tokenString string) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// SetUser changes the current user and notifies subscribers when it differs.
func (s *Session) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == userID {
		return
	}
	s.userID = userID
	s.logger.Info("user changed", "action", "set_user", "signed_in", userID != "")
	for _, ch := range s.subs {
		// Keep only the latest value for slow consumers
		select {
		case <-ch:
		default:
		}
		ch <- userID
	}
}

// SignOut clears the current user.
func (s *Session) SignOut() {
	s.SetUser("")
}

// Subscribe returns a channel that receives the user id after every change
// (empty on sign-out). Only the latest unread value is kept. The returned
// func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, c := range s.subs {
				if c == ch {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
}

// IssueToken signs a token for userID valid for ttl.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
