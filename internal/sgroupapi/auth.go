package sgroupapi

import (
	"net/http"

	"github.com/gorilla/securecookie"

	"github.com/sgroupald/sgroupald/internal/principal"
)

const userIDCookieName = "user_id"

// Authenticator resolves the principal.Principal driving a request:
// either a bearer header matching the configured shared secret
// (optionally impersonating via X-Impersonate-User), or the private
// signed "user_id" cookie set by /login, per spec.md §6.
type Authenticator struct {
	TrustedBearer string
	Cookie        *securecookie.SecureCookie
}

// NewAuthenticator builds an Authenticator. hashKey/blockKey are the
// securecookie keys used to sign the cookie /login sets; blockKey may
// be nil to sign without encrypting.
func NewAuthenticator(trustedBearer string, hashKey, blockKey []byte) *Authenticator {
	return &Authenticator{
		TrustedBearer: trustedBearer,
		Cookie:        securecookie.New(hashKey, blockKey),
	}
}

// Authenticate resolves r's principal, or an error if neither
// authentication method succeeds.
func (a *Authenticator) Authenticate(r *http.Request) (principal.Principal, error) {
	if bearer, ok := bearerToken(r); ok {
		if a.TrustedBearer == "" || bearer != a.TrustedBearer {
			return principal.Principal{}, errUnauthenticated
		}
		if impersonate := r.Header.Get("X-Impersonate-User"); impersonate != "" {
			return principal.User(impersonate), nil
		}
		return principal.TrustedAdmin(), nil
	}

	cookie, err := r.Cookie(userIDCookieName)
	if err != nil {
		return principal.Principal{}, errUnauthenticated
	}
	var userID string
	if err := a.Cookie.Decode(userIDCookieName, cookie.Value, &userID); err != nil {
		return principal.Principal{}, errUnauthenticated
	}
	return principal.User(userID), nil
}

// SetUserCookie signs and sets the private user_id cookie, called by
// the /login handler once a CAS ticket has been validated.
func (a *Authenticator) SetUserCookie(w http.ResponseWriter, userID string) error {
	encoded, err := a.Cookie.Encode(userIDCookieName, userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     userIDCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
		return "", false
	}
	return h[len(prefix):], true
}

var errUnauthenticated = &authError{"no valid bearer token or user_id cookie"}

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }
