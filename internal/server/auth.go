package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

const (
	tokenCookieName = "fg_token"
	tokenCookieTTL  = 24 * time.Hour
)

// authMiddleware admits a request carrying the dashboard token as a bearer
// header, a ?token= query parameter or the fg_token cookie, checked in that
// order. A valid query token is exchanged for the cookie and the request is
// redirected to the same URL without it, so the token leaves the address bar.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			s.admit(w, r, next, bearer)
			return
		}

		if q := r.URL.Query(); q.Has("token") {
			if !s.validToken(q.Get("token")) {
				unauthorized(w)
				return
			}
			s.setTokenCookie(w)

			q.Del("token")
			target := *r.URL
			target.RawQuery = q.Encode()
			http.Redirect(w, r, target.String(), http.StatusFound)
			return
		}

		cookie, err := r.Cookie(tokenCookieName)
		if err != nil {
			unauthorized(w)
			return
		}
		s.admit(w, r, next, cookie.Value)
	})
}

func (s *Server) admit(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	if !s.validToken(token) {
		unauthorized(w)
		return
	}
	next.ServeHTTP(w, r)
}

// validToken compares in constant time.
func (s *Server) validToken(token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func (s *Server) setTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    s.token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(tokenCookieTTL / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
