package jwt

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is the only error Verify reports. The concrete reason is kept
// on *VerifyError for logging and is never part of the message.
var ErrInvalidToken = errors.New("invalid token")

// VerifyError wraps the reason a token was rejected.
type VerifyError struct {
	Reason error
}

func (e *VerifyError) Error() string { return ErrInvalidToken.Error() }

// Unwrap lets errors.Is match ErrInvalidToken.
func (e *VerifyError) Unwrap() error { return ErrInvalidToken }

// Claims defines JWT payload.
type Claims struct {
	UserID string `json:"userId"`
	jwtlib.RegisteredClaims
}

// Token is a signed token and the instants it covers.
type Token struct {
	Value     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issuer signs and verifies HS256 session tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer constructs an Issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	issuer := &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// Issue signs a token for userID that expires ttl after now.
func (i *Issuer) Issue(userID string) (Token, error) {
	if strings.TrimSpace(userID) == "" {
		return Token{}, errors.New("jwt: empty user id")
	}
	now := i.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{
		Value:     signed,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify validates signature and expiry and returns the embedded user id.
func (i *Issuer) Verify(token string) (string, error) {
	parsed, err := jwtlib.ParseWithClaims(strings.TrimSpace(token), &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", &VerifyError{Reason: err}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", &VerifyError{Reason: jwtlib.ErrTokenInvalidClaims}
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", &VerifyError{Reason: errors.New("missing user id claim")}
	}
	return claims.UserID, nil
}
