package services

import (
	"errors"
	"testing"

	"warehouse-system/pkg/config"
	apperrors "warehouse-system/pkg/errors"

	ldap "github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLDAPSession struct {
	passwords map[string]string
	entries   []*ldap.Entry
	filter    string
	binds     []string
}

func (f *fakeLDAPSession) Bind(username, password string) error {
	f.binds = append(f.binds, username)
	if p, ok := f.passwords[username]; ok && p == password {
		return nil
	}
	return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (f *fakeLDAPSession) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.filter = req.Filter
	return &ldap.SearchResult{Entries: f.entries}, nil
}

func newTestLDAP(session *fakeLDAPSession) *LDAPAuthenticator {
	a := NewLDAPAuthenticator(config.LDAPConfig{
		Host:              "ldap.local",
		Port:              389,
		BindDN:            "cn=svc,dc=corp",
		BindPassword:      "svc-pass",
		SearchBaseDN:      "dc=corp",
		UserFilterPattern: "(sAMAccountName=%s)",
	}, zap.NewNop())
	a.dial = func(string) (ldapSession, func(), error) { return session, func() {}, nil }
	return a
}

func TestLDAPAuthenticator(t *testing.T) {
	session := &fakeLDAPSession{
		passwords: map[string]string{"cn=svc,dc=corp": "svc-pass", "cn=ivan,dc=corp": "ad-pass"},
		entries:   []*ldap.Entry{ldap.NewEntry("cn=ivan,dc=corp", nil)},
	}
	a := newTestLDAP(session)

	require.NoError(t, a.Authenticate("ivan", "ad-pass"))
	assert.Equal(t, "(sAMAccountName=ivan)", session.filter)
	assert.Equal(t, []string{"cn=svc,dc=corp", "cn=ivan,dc=corp"}, session.binds)

	assert.ErrorIs(t, a.Authenticate("ivan", "wrong"), apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, a.Authenticate("ivan", ""), apperrors.ErrInvalidCredentials)
}

func TestLDAPAuthenticator_EscapesFilterAndRequiresSingleEntry(t *testing.T) {
	session := &fakeLDAPSession{passwords: map[string]string{"cn=svc,dc=corp": "svc-pass"}}
	a := newTestLDAP(session)

	err := a.Authenticate("*)(uid=*", "x")

	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	assert.Equal(t, `(sAMAccountName=\2a\29\28uid=\2a)`, session.filter)
}
