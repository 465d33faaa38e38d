// Package identity guards admin routes with HTTP Basic auth.
package identity

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator checks admin credentials. The password is only kept as a bcrypt hash.
type Authenticator struct {
	username []byte
	hash     []byte
}

// NewAuthenticator creates an authenticator for one admin account. password may be
// plain text or an existing bcrypt hash. An empty password disables the account, so
// every check fails.
func NewAuthenticator(username, password string, cost int) (*Authenticator, error) {
	a := &Authenticator{username: []byte(username)}
	if password == "" {
		return a, nil
	}

	if _, err := bcrypt.Cost([]byte(password)); err == nil {
		a.hash = []byte(password)
		return a, nil
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	a.hash = hash
	return a, nil
}

// Enabled reports whether an admin password is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.hash) > 0
}

// Verify reports whether the credentials belong to the admin account.
func (a *Authenticator) Verify(username, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), a.username) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}
