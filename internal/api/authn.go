package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/auth"
)

// Cookie names for the token pair.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// authenticateMiddleware validates the access token on protected routes.
//
// The token is taken from the Authorization bearer header first, falling
// back to the accessToken cookie. Verification is purely cryptographic;
// no revocation check applies to access tokens.
func (s *Server) authenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			if cookie, err := r.Cookie(accessTokenCookie); err == nil {
				tokenString = cookie.Value
			}
		}
		if tokenString == "" {
			writeUnauthorized(w, "authentication required")
			return
		}

		claims, err := s.verifier.VerifyAccessToken(tokenString)
		if err != nil {
			s.logger.Warn("access token rejected",
				"error", err,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAccessClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateRefreshMiddleware validates the refresh token on the refresh and
// logout routes.
//
// The token comes from the refreshToken cookie only; refresh tokens are
// never accepted from headers. Beyond the signature, the revocation
// record named by the jti must exist and belong to the token's subject.
// Store failures reject the request rather than admit an uncheckable
// token.
func (s *Server) validateRefreshMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshTokenCookie)
		if err != nil || cookie.Value == "" {
			writeUnauthorized(w, "refresh token required")
			return
		}

		claims, record, err := s.verifier.VerifyRefreshToken(r.Context(), cookie.Value)
		if err != nil {
			s.rejectRefreshToken(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyRefreshClaims, claims)
		ctx = context.WithValue(ctx, ctxKeyRefreshRecord, record)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rejectRefreshToken logs, audits, and answers a failed refresh token check.
// Every failure maps to 401; the reason stays server-side.
func (s *Server) rejectRefreshToken(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("refresh token rejected",
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)

	if s.audit != nil && errors.Is(err, auth.ErrTokenRevoked) {
		s.recordAudit(r.Context(), &audit.Entry{
			EventType: audit.EventTokenRejected,
			Detail:    "revoked refresh token replayed",
		})
	}
	if s.metrics != nil {
		outcome := "invalid"
		if errors.Is(err, auth.ErrTokenRevoked) {
			outcome = "revoked"
		}
		s.metrics.RecordAuthEvent("refresh", outcome)
	}

	writeUnauthorized(w, "invalid or revoked refresh token")
}

// accessClaimsFromContext returns the verified access claims set by
// authenticateMiddleware.
func accessClaimsFromContext(ctx context.Context) (*auth.AccessClaims, bool) {
	claims, ok := ctx.Value(ctxKeyAccessClaims).(*auth.AccessClaims)
	return claims, ok
}

// refreshClaimsFromContext returns the verified refresh claims set by
// validateRefreshMiddleware.
func refreshClaimsFromContext(ctx context.Context) (*auth.RefreshClaims, bool) {
	claims, ok := ctx.Value(ctxKeyRefreshClaims).(*auth.RefreshClaims)
	return claims, ok
}

// refreshRecordFromContext returns the revocation record behind the
// presented refresh token.
func refreshRecordFromContext(ctx context.Context) (*auth.RevocationRecord, bool) {
	record, ok := ctx.Value(ctxKeyRefreshRecord).(*auth.RevocationRecord)
	return record, ok
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// recordAudit writes an audit entry, logging instead of failing the
// request when the write goes wrong.
func (s *Server) recordAudit(ctx context.Context, entry *audit.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("writing audit entry", "error", err, "event", entry.EventType)
	}
}
