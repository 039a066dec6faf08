package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the authenticated caller. It is built once per login (or per request
// by the auth middleware) and handed to whatever needs it.
type Session struct {
	UserID    uuid.UUID
	Role      string
	CourierID string
	Token     string
}

// NewSession builds a Session from validated claims and the raw token.
func NewSession(claims *Claims, token string) *Session {
	return &Session{
		UserID:    claims.UserID,
		Role:      claims.Role,
		CourierID: claims.CourierID,
		Token:     token,
	}
}

// IsCourier reports whether the session belongs to a courier with a usable courier id.
func (s *Session) IsCourier() bool {
	return s != nil && s.Role == RoleCourier && s.CourierID != ""
}

// SameIdentity reports whether two sessions describe the same user, role and courier.
func (s *Session) SameIdentity(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.UserID == other.UserID && s.Role == other.Role && s.CourierID == other.CourierID
}

// SessionFromToken reads the identity carried by a token without verifying its
// signature. It is for clients that hold a token but not the signing secret;
// the server still validates every request.
func SessionFromToken(token string) (*Session, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("token carries no user id")
	}
	return NewSession(claims, token), nil
}
