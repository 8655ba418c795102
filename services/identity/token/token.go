// Package token issues and verifies the JWT that carries a CodeTrail session.
package token

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/identity"
)

const Audience = "CodeTrail"

var (
	NowFunc = time.Now // mockable

	ErrInvalid        = errors.New("invalid token")
	ErrRefreshExpired = errors.New("refresh has expired")

	SigningMethod = jwt.SigningMethodHS256
)

// Claims represents the authorization claims transmitted via a JWT.
// The role is deliberately absent: it is resolved on every check.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
}

// Identity rebuilds the principal from the claims.
func (c Claims) Identity() identity.Identity {
	return identity.Identity{Email: c.Email, DisplayName: c.Name, AvatarURL: c.AvatarURL}
}

type Manager struct {
	issuer        string
	key           []byte
	expiration    time.Duration
	refreshWindow time.Duration
}

func NewManager(issuer, secretKey string, expiration, refreshWindow time.Duration) *Manager {
	return &Manager{
		issuer:        issuer,
		key:           []byte(secretKey),
		expiration:    expiration,
		refreshWindow: refreshWindow,
	}
}

// Key is the HMAC key, for the echo JWT middleware.
func (m *Manager) Key() []byte { return m.key }

// Claims builds the claims of a session for subject.
func (m *Manager) Claims(subject string, idn identity.Identity, origIat ...int64) *Claims {
	now := NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    m.issuer,
			Subject:   subject,
			Audience:  Audience,
			ExpiresAt: now.Add(m.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        idn.Email,
		Name:         idn.DisplayName,
		AvatarURL:    idn.AvatarURL,
	}
}

// Sign generates a signed JWT token string representing the Claims.
func (m *Manager) Sign(claims *Claims) (string, error) {
	t := jwt.NewWithClaims(SigningMethod, claims)
	ss, err := t.SignedString(m.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Issue signs a fresh session for subject.
func (m *Manager) Issue(subject string, idn identity.Identity) (string, error) {
	return m.Sign(m.Claims(subject, idn))
}

// Parse verifies ss and returns its claims.
func (m *Manager) Parse(ss string) (*Claims, error) {
	if ss == "" {
		return nil, ErrInvalid
	}

	claims := new(Claims)
	parser := jwt.Parser{ValidMethods: []string{SigningMethod.Alg()}, SkipClaimsValidation: true}
	t, err := parser.ParseWithClaims(ss, claims, func(*jwt.Token) (interface{}, error) {
		return m.key, nil
	})
	if err != nil || !t.Valid {
		return nil, ErrInvalid
	}
	if err = m.Validate(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Validate checks the time-based claims against NowFunc.
func (m *Manager) Validate(claims *Claims) error {
	now := NowFunc().Unix()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyIssuedAt(now, false) {
		return ErrInvalid
	}
	if !claims.VerifyAudience(Audience, true) || claims.Email == "" {
		return ErrInvalid
	}
	return nil
}

// Refresh re-issues claims for idn while the refresh window since the original login is open.
func (m *Manager) Refresh(claims *Claims, idn identity.Identity) (string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(m.refreshWindow)
	if NowFunc().After(expTime) {
		return "", ErrRefreshExpired
	}
	return m.Sign(m.Claims(claims.Subject, idn, claims.OrigIssuedAt))
}
