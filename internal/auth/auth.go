// Package auth decides who may use the admin screens and issues the
// anti-forgery tokens those screens submit.
package auth

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
)

// CapabilityManageReviews allows reading reviews, editing settings, and
// generating replies.
const CapabilityManageReviews = "manage_reviews"

// CookieName holds the admin token in the browser.
const CookieName = "rr_admin"

// User is an authenticated caller.
type User struct {
	ID           string
	Capabilities []string
}

// Can reports whether the user holds capability. A nil user holds nothing.
func (u *User) Can(capability string) bool {
	return u != nil && slices.Contains(u.Capabilities, capability)
}

// Authenticator maps a presented admin token to the admin user.
type Authenticator struct {
	token string
}

// NewAuthenticator creates an authenticator for the configured admin token.
// With an empty token nobody is authenticated.
func NewAuthenticator(token string) *Authenticator {
	return &Authenticator{token: token}
}

// Check reports whether token matches the configured admin token.
func (a *Authenticator) Check(token string) bool {
	if a.token == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.token), []byte(token)) == 1
}

// UserFromRequest returns the caller identified by the admin cookie or an
// "Authorization: Bearer" header, or nil.
func (a *Authenticator) UserFromRequest(r *http.Request) *User {
	token := ""
	if c, err := r.Cookie(CookieName); err == nil {
		token = c.Value
	}
	if h := r.Header.Get("Authorization"); token == "" && strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if !a.Check(token) {
		return nil
	}
	return &User{ID: "admin", Capabilities: []string{CapabilityManageReviews}}
}
