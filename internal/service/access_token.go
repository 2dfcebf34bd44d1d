package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/book-network/internal/model"
)

// Claims is the payload of an access token. Subject carries the user's
// email; UserID is informational and never trusted for identity.
type Claims struct {
	FullName    string   `json:"fullName"`
	Authorities []string `json:"authorities"`
	UserID      uint64   `json:"uid"`
	jwt.RegisteredClaims
}

// AccessToken is a signed bearer token and its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// AccessTokenService mints and validates HS256 access tokens. It keeps
// no state: rotating the secret invalidates every token already issued.
type AccessTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  Clock
}

// NewAccessTokenService returns a service signing with secret. A
// non-positive ttl defaults to 24 hours and a nil clock to SystemClock.
func NewAccessTokenService(secret string, ttl time.Duration, issuer string, clock Clock) *AccessTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &AccessTokenService{secret: []byte(secret), ttl: ttl, issuer: issuer, clock: clock}
}

// Issue signs a token for u. Roles become the authorities claim.
func (s *AccessTokenService) Issue(u *model.User) (AccessToken, error) {
	now := s.clock.Now()
	exp := now.Add(s.ttl)
	authorities := make([]string, len(u.Roles))
	copy(authorities, u.Roles)
	claims := Claims{
		FullName:    u.FullName(),
		Authorities: authorities,
		UserID:      u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			Issuer:    s.issuer,
			ID:        strconv.FormatInt(now.UnixNano(), 36),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, internal("sign access token", err)
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// Validate checks the signature first and the expiry second. Only HS256
// is accepted, so tokens signed with "none" or another algorithm fail
// as ErrInvalidToken. A well-signed token past exp fails as
// ErrExpiredToken.
func (s *AccessTokenService) Validate(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
