package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const accessSubject = "health"

// AccessSigner выпускает и проверяет короткоживущий токен доступа к
// диагностике. Используется SigningMethodHS256.
type AccessSigner struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
}

func NewAccessSigner(secret []byte, issuer string, ttl, clockSkew time.Duration) (*AccessSigner, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &AccessSigner{
		secret:    secret,
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: clockSkew,
	}, nil
}

func (s *AccessSigner) TTL() time.Duration {
	return s.ttl
}

// Sign выпускает токен с exp = now + ttl.
func (s *AccessSigner) Sign(now time.Time) (string, error) {
	claims := jwt.StandardClaims{
		Subject:   accessSubject,
		Issuer:    s.issuer,
		IssuedAt:  now.Unix(),
		NotBefore: now.Add(-s.clockSkew).Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

// Verify проверяет подпись, issuer и окно действия с допуском clockSkew.
func (s *AccessSigner) Verify(tokenStr string, now time.Time) error {
	claims := &jwt.StandardClaims{}
	parser := &jwt.Parser{SkipClaimsValidation: true} // время проверяем сами, с люфтом
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}

	if !claims.VerifyIssuer(s.issuer, true) || claims.Subject != accessSubject {
		return ErrInvalidToken
	}

	nbf := time.Unix(claims.NotBefore, 0).Add(-s.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(s.clockSkew)
	if now.Before(nbf) || now.After(exp) {
		return ErrTokenExpired
	}

	return nil
}
