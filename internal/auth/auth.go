// Package auth implements signup/login with bcrypt password hashing and JWT
// bearer sessions. Core services never read ambient session state; the
// middleware attaches an explicit Session that handlers pass down as a
// parameter.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"
)

// Roles a user can hold.
const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// Session identifies the authenticated caller for the duration of one
// request. It is created by the bearer middleware and torn down with the
// request context.
type Session struct {
	UserID string
	Email  string
	Role   string
}

// IsDoctor reports whether the session belongs to a doctor.
func (s Session) IsDoctor() bool { return s.Role == RoleDoctor }

// TokenIssuer signs and verifies session tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

// NewTokenIssuer creates an issuer. Expiry bounds how long issued tokens
// remain valid.
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(userID, email, role string, now time.Time) (string, error) {
	c := claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", eris.Wrap(err, "auth: sign token")
	}
	return signed, nil
}

// Verify parses a token and returns the session it carries.
func (t *TokenIssuer) Verify(tokenString string) (Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(tokenString, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, eris.Errorf("auth: unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return Session{}, eris.Wrap(err, "auth: parse token")
	}
	if !parsed.Valid {
		return Session{}, eris.New("auth: invalid token")
	}
	return Session{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "auth: hash password")
	}
	return string(hashed), nil
}

// VerifyPassword reports whether plain matches the stored hash.
func VerifyPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
