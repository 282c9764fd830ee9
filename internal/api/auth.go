package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/auth"
	"github.com/fenrislabs/auth-service/internal/infrastructure/events"
)

// minPasswordLength is the minimum accepted password length on
// registration and password changes.
const minPasswordLength = 8

// userResponse is the public view of a user. The password hash never
// leaves the service.
type userResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenantId"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		TenantID:  u.TenantID,
	}
}

// registerRequest carries no tenant field: a self-registered customer
// cannot choose a tenant. Admins attach users to tenants through /users.
type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (req *registerRequest) validate() string {
	switch {
	case req.FirstName == "":
		return "firstName is required"
	case req.LastName == "":
		return "lastName is required"
	case req.Email == "":
		return "email is required"
	case len(req.Password) < minPasswordLength:
		return "password must be at least 8 characters"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "email is not valid"
	}
	return ""
}

// handleRegister creates a customer account and signs the new user in.
//
// Self-registration always produces the customer role; privileged
// accounts are created by admins through /users.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	user := &auth.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleCustomer,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("creating user", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	pair, err := s.issuer.IssuePair(r.Context(), user)
	if err != nil {
		s.logger.Error("issuing tokens", "error", err, "user_id", user.ID)
		writeInternalError(w, "registration failed")
		return
	}
	s.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)

	s.recordAudit(r.Context(), &audit.Entry{
		EventType: audit.EventUserRegistered,
		SubjectID: &user.ID,
	})
	s.publishEvent(audit.EventUserRegistered, user, "")
	if s.metrics != nil {
		s.metrics.RecordAuthEvent("register", "success")
		s.metrics.RecordTokensIssued("register")
	}

	s.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin checks credentials and issues a fresh token pair.
//
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "email and password are required")
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			s.failLogin(w, r, nil)
			return
		}
		s.logger.Error("looking up user", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("verifying password", "error", err, "user_id", user.ID)
		writeInternalError(w, "login failed")
		return
	}
	if !ok {
		s.failLogin(w, r, &user.ID)
		return
	}

	pair, err := s.issuer.IssuePair(r.Context(), user)
	if err != nil {
		s.logger.Error("issuing tokens", "error", err, "user_id", user.ID)
		writeInternalError(w, "login failed")
		return
	}
	s.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)

	s.recordAudit(r.Context(), &audit.Entry{
		EventType: audit.EventUserLogin,
		ActorID:   &user.ID,
	})
	if s.metrics != nil {
		s.metrics.RecordAuthEvent("login", "success")
		s.metrics.RecordTokensIssued("login")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// failLogin answers a bad credential attempt. subjectID is nil when the
// email matched no account.
func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, subjectID *int64) {
	s.recordAudit(r.Context(), &audit.Entry{
		EventType: audit.EventUserLoginFail,
		SubjectID: subjectID,
	})
	if s.metrics != nil {
		s.metrics.RecordAuthEvent("login", "failed")
	}
	writeUnauthorized(w, "invalid email or password")
}

// handleSelf returns the authenticated user's profile, read fresh from
// the store so role or tenant changes show without re-login.
func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	claims, ok := accessClaimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	userID, err := auth.ParseSubject(claims.Subject)
	if err != nil {
		writeUnauthorized(w, "invalid token subject")
		return
	}

	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("loading user", "error", err, "user_id", userID)
		writeInternalError(w, "profile lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleRefresh rotates the token pair.
//
// The replacement revocation record is created before the old one is
// deleted. A failure before the delete leaves two valid records rather
// than zero; the orphan dies at its expiry or the next DeleteExpired
// sweep. A failed delete is logged and the rotation still succeeds.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := refreshClaimsFromContext(r.Context())
	oldRecord, recOK := refreshRecordFromContext(r.Context())
	if !ok || !recOK {
		writeUnauthorized(w, "refresh token required")
		return
	}

	userID, err := auth.ParseSubject(claims.Subject)
	if err != nil {
		writeUnauthorized(w, "invalid token subject")
		return
	}

	// The token outlived its account. Drop the orphaned record too.
	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			if delErr := s.records.Delete(r.Context(), oldRecord.ID); delErr != nil && !errors.Is(delErr, auth.ErrRecordNotFound) {
				s.logger.Warn("deleting orphaned record", "error", delErr, "record_id", oldRecord.ID)
			}
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("loading user", "error", err, "user_id", userID)
		writeInternalError(w, "refresh failed")
		return
	}

	pair, err := s.issuer.IssuePair(r.Context(), user)
	if err != nil {
		s.logger.Error("issuing tokens", "error", err, "user_id", user.ID)
		writeInternalError(w, "refresh failed")
		return
	}

	if err := s.records.Delete(r.Context(), oldRecord.ID); err != nil {
		// The new pair is already live. Losing the delete means the old
		// token stays usable until expiry; better than stranding the user.
		s.logger.Warn("deleting rotated record",
			"error", err,
			"record_id", oldRecord.ID,
			"user_id", user.ID,
		)
	}

	s.setAuthCookies(w, pair.AccessToken, pair.RefreshToken)

	s.recordAudit(r.Context(), &audit.Entry{
		EventType: audit.EventTokenRotated,
		ActorID:   &user.ID,
		Detail:    "record " + strconv.FormatInt(oldRecord.ID, 10) + " -> " + strconv.FormatInt(pair.Record.ID, 10),
	})
	s.publishEvent(audit.EventTokenRotated, user, "")
	if s.metrics != nil {
		s.metrics.RecordAuthEvent("refresh", "success")
		s.metrics.RecordTokensIssued("refresh")
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleLogout revokes the presented refresh token and clears both
// cookies. Exactly one record dies per logout; other sessions of the
// same user stay valid.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := accessClaimsFromContext(r.Context())
	record, recOK := refreshRecordFromContext(r.Context())
	if !ok || !recOK {
		writeUnauthorized(w, "authentication required")
		return
	}

	if err := s.records.Delete(r.Context(), record.ID); err != nil {
		if !errors.Is(err, auth.ErrRecordNotFound) {
			s.logger.Error("deleting record on logout", "error", err, "record_id", record.ID)
			writeInternalError(w, "logout failed")
			return
		}
		// Lost a race with another revocation; the end state is what the
		// client asked for.
	}

	s.clearAuthCookies(w)

	userID, _ := auth.ParseSubject(claims.Subject)
	s.recordAudit(r.Context(), &audit.Entry{
		EventType: audit.EventTokenRevoked,
		ActorID:   &userID,
		Detail:    "record " + strconv.FormatInt(record.ID, 10),
	})
	s.publishEventRaw(audit.EventTokenRevoked, claims.Subject, claims.Tenant, "")
	if s.metrics != nil {
		s.metrics.RecordAuthEvent("revoke", "success")
	}

	s.logger.Info("user logged out", "user_id", userID, "record_id", record.ID)
	w.WriteHeader(http.StatusNoContent)
}

// publishEvent announces an auth event for a user. Best effort.
func (s *Server) publishEvent(eventType string, user *auth.User, detail string) {
	s.publishEventRaw(eventType, user.Subject(), user.TenantString(), detail)
}

func (s *Server) publishEventRaw(eventType, userID, tenant, detail string) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(eventType, events.Event{
		UserID: userID,
		Tenant: tenant,
		Detail: detail,
	})
	if err != nil {
		s.logger.Warn("publishing event", "error", err, "event", eventType)
	}
}
