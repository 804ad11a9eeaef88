// Package auth checks the operator credentials and tracks login
// sessions. There is no process-wide login flag: a request is
// authenticated when it carries a live session id.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fundtracker/internal/core"
)

var ErrInvalidCredentials = &core.Error{Kind: core.KindUnauthorized, Message: "invalid username or password"}

// Authenticator verifies a username/password pair. An empty configured
// username accepts any username, matching the single-password gate of
// a one-operator deployment.
type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
}

// NewAuthenticator prefers passwordHash (bcrypt) over a plain password.
func NewAuthenticator(username, password, passwordHash string) (*Authenticator, error) {
	a := &Authenticator{username: strings.TrimSpace(username)}
	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, core.NewError(core.KindConfiguration, "ADMIN_PASSWORD_HASH is not a bcrypt hash", err)
		}
		a.hash = []byte(passwordHash)
	case password != "":
		a.secret = []byte(password)
	default:
		return nil, core.NewError(core.KindConfiguration, "no admin password configured", nil)
	}
	return a, nil
}

// Check returns ErrInvalidCredentials on mismatch.
func (a *Authenticator) Check(username, password string) error {
	userOK := a.username == "" ||
		subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1

	var passOK bool
	if a.hash != nil {
		err := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("compare password hash: %w", err)
		}
		passOK = err == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), a.secret) == 1
	}

	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// RequiresUsername reports whether the login form must ask for one.
func (a *Authenticator) RequiresUsername() bool { return a.username != "" }

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
