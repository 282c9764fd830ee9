package api

import (
	"net/http"
	"time"
)

// setAuthCookies writes the token pair as httpOnly cookies.
//
// Both cookies are SameSite=Strict and, outside local development,
// Secure. Tokens are never exposed to frontend script.
func (s *Server) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Domain:   s.cookieCfg.Domain,
		MaxAge:   int(s.issuer.AccessTTL() / time.Second),
		HttpOnly: true,
		Secure:   s.cookieCfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		Domain:   s.cookieCfg.Domain,
		MaxAge:   int(s.issuer.RefreshTTL() / time.Second),
		HttpOnly: true,
		Secure:   s.cookieCfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies expires both token cookies.
func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   s.cookieCfg.Domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cookieCfg.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
