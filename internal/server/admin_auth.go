package server

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials guard the operator endpoints. An empty PasswordHash
// disables them.
type AdminCredentials struct {
	User         string
	PasswordHash string
}

func (c AdminCredentials) Enabled() bool {
	return c.PasswordHash != ""
}

func (c AdminCredentials) verify(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password))
	return userOK && err == nil
}

func adminAuthMiddleware(creds AdminCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok || !creds.verify(user, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="geoduel-admin", charset="UTF-8"`)
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
