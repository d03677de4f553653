package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("staff-1", RoleAdmin, "eventdesk", "secret", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Value)

	claims, err := Parse(tok.Value, "secret", "eventdesk")
	require.NoError(t, err)

	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, Actor{ID: "staff-1", Role: RoleAdmin}, actor)
	assert.True(t, actor.IsAdmin())
}

func TestParseRejectsWrongKey(t *testing.T) {
	tok, err := Issue("staff-1", RoleUser, "eventdesk", "secret", time.Minute)
	require.NoError(t, err)

	_, err = Parse(tok.Value, "other", "eventdesk")
	assert.Error(t, err)
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	tok, err := Issue("staff-1", RoleUser, "someone-else", "secret", time.Minute)
	require.NoError(t, err)

	_, err = Parse(tok.Value, "secret", "eventdesk")
	assert.EqualError(t, err, "issuer mismatch")
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := Issue("staff-1", RoleUser, "eventdesk", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = Parse(tok.Value, "secret", "eventdesk")
	assert.Error(t, err)
}

func TestMissingRoleIsUser(t *testing.T) {
	claims := Claims{}
	claims.Subject = "visitor"

	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, RoleUser, actor.Role)
	assert.False(t, actor.IsAdmin())
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" ADMIN ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	assert.Error(t, err)
}

func TestAnonymous(t *testing.T) {
	assert.False(t, Anonymous.Authenticated())
	assert.False(t, Actor{Role: RoleAdmin}.IsAdmin())
	assert.Equal(t, "anonymous", Anonymous.String())
}
