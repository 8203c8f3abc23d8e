// token.go - Stateless session tokens.
//
// Sessions are HS256-signed JWTs carrying identity and role claims.
// Nothing is stored server-side; validity is signature + expiry only,
// so rotating the secret invalidates every outstanding session.
package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the authorization level embedded in a session token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Claims is the session token claim set. Subject holds the stringified
// user id. The role is fixed at issuance: a role change in the database
// only takes effect at the next login. That staleness window is accepted
// in exchange for not hitting the store on every request.
type Claims struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the numeric user id.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenService issues and verifies session tokens with a process-wide
// symmetric secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

const defaultSessionTTL = 2 * time.Hour

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue builds and signs a session token for the user. The returned expiry
// is also used for the cookie lifetime.
func (ts *TokenService) Issue(u User) (string, time.Time, error) {
	now := ts.now()
	exp := now.Add(ts.ttl)

	role := RoleUser
	if u.IsAdmin {
		role = RoleAdmin
	}

	claims := Claims{
		Username: u.Username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify checks signature and expiry. Failures map onto ErrTokenMalformed,
// ErrTokenSignature and ErrTokenExpired; any non-HS256 token counts as a
// bad signature.
func (ts *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return ts.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	return claims, nil
}
