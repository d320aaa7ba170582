// Package session carries the authenticated identity through the client.
//
// The mobile app this replaces kept its token and login flag in
// module-global state; here the session is an explicit value handed to the
// API client and the realtime dialer. A credential change means building new
// instances with the new session, never mutating a live one.
package session

import "strings"

type Token string

// Session identifies the signed-in user. The zero value is anonymous.
type Session struct {
	Token    Token
	UserID   int64
	UserName string
}

// Anonymous returns an unauthenticated session. Requests made with it go out
// without a bearer header; rejecting them is the server's job.
func Anonymous() Session {
	return Session{}
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(string(s.Token)) != ""
}

// Bearer returns the Authorization header value, or "" when anonymous.
func (s Session) Bearer() string {
	if !s.Authenticated() {
		return ""
	}
	return "Bearer " + string(s.Token)
}
