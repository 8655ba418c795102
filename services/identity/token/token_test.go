package token

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetrail/codetrail/core/identity"
)

var awe = identity.Identity{Email: "awe@test.cd", DisplayName: "Awe", AvatarURL: "https://img.test.cd/awe.png"}

func withNow(t *testing.T, now time.Time) *time.Time {
	NowFunc = func() time.Time { return now }
	t.Cleanup(func() { NowFunc = time.Now })
	return &now
}

func TestManager_IssueAndParse(t *testing.T) {
	m := NewManager("CodeTrail", "secret", time.Hour, 4*time.Hour)

	ss, err := m.Issue("user-1", awe)
	require.NoError(t, err)

	claims, err := m.Parse(ss)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "CodeTrail", claims.Issuer)
	assert.Equal(t, awe, claims.Identity())
}

func TestManager_Parse(t *testing.T) {
	m := NewManager("CodeTrail", "secret", time.Hour, 4*time.Hour)
	other := NewManager("CodeTrail", "other secret", time.Hour, 4*time.Hour)
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	withNow(t, now)

	valid, _ := m.Issue("user-1", awe)
	forged, _ := other.Issue("user-1", awe)
	noEmail, _ := m.Issue("user-1", identity.Identity{})
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, m.Claims("user-1", awe)).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		token   string
		after   time.Duration
		wantErr error
	}{
		{name: "valid", token: valid},
		{name: "empty", token: "", wantErr: ErrInvalid},
		{name: "garbage", token: "not.a.jwt", wantErr: ErrInvalid},
		{name: "wrong key", token: forged, wantErr: ErrInvalid},
		{name: "alg none", token: none, wantErr: ErrInvalid},
		{name: "no email", token: noEmail, wantErr: ErrInvalid},
		{name: "expired", token: valid, after: 2 * time.Hour, wantErr: ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withNow(t, now.Add(tt.after))
			_, err := m.Parse(tt.token)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestManager_Refresh(t *testing.T) {
	m := NewManager("CodeTrail", "secret", time.Hour, 4*time.Hour)
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	withNow(t, now)
	claims := m.Claims("user-1", awe)

	withNow(t, now.Add(3*time.Hour))
	renamed := awe
	renamed.DisplayName = "Awe K."
	ss, err := m.Refresh(claims, renamed)
	require.NoError(t, err)
	refreshed, err := m.Parse(ss)
	require.NoError(t, err)
	assert.Equal(t, claims.OrigIssuedAt, refreshed.OrigIssuedAt)
	assert.Equal(t, "Awe K.", refreshed.Name)

	withNow(t, now.Add(5*time.Hour))
	_, err = m.Refresh(claims, awe)
	assert.Equal(t, ErrRefreshExpired, err)
}
