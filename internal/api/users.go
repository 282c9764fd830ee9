package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/auth"
)

type createUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	TenantID  *int64 `json:"tenantId"`
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("listing users", "error", err)
		writeInternalError(w, "listing users failed")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateUser creates an account with an explicit role. Unlike
// self-registration, admins can mint managers and other admins here.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	reg := registerRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	}
	if msg := reg.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleCustomer
	}
	if !auth.IsValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "role must be admin, manager or customer")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		writeInternalError(w, "creating user failed")
		return
	}

	user := &auth.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		TenantID:     req.TenantID,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("creating user", "error", err)
		writeInternalError(w, "creating user failed")
		return
	}

	s.auditAdminAction(r, audit.EventUserRegistered, user.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// handleGetUser returns a single user by id.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("loading user", "error", err, "user_id", id)
		writeInternalError(w, "loading user failed")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
	TenantID  *int64  `json:"tenantId"`
}

// handleUpdateUser applies a partial update to a user.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("loading user", "error", err, "user_id", id)
		writeInternalError(w, "updating user failed")
		return
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		if !auth.IsValidRole(*req.Role) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "role must be admin, manager or customer")
			return
		}
		user.Role = *req.Role
	}
	if req.TenantID != nil {
		user.TenantID = req.TenantID
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error("hashing password", "error", err)
			writeInternalError(w, "updating user failed")
			return
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("updating user", "error", err, "user_id", id)
		writeInternalError(w, "updating user failed")
		return
	}

	s.auditAdminAction(r, audit.EventUserUpdated, user.ID)
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// handleDeleteUser removes an account. Every refresh token the user held
// is revoked by the cascade on their revocation records.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("deleting user", "error", err, "user_id", id)
		writeInternalError(w, "deleting user failed")
		return
	}

	s.auditAdminAction(r, audit.EventUserDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}

// handleListAudit returns the audit trail, newest first.
//
// Query parameters: event (exact type), actor (user id), limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	filter := audit.Filter{
		EventType: r.URL.Query().Get("event"),
	}
	if v := r.URL.Query().Get("actor"); v != "" {
		actorID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeBadRequest(w, "actor must be a user id")
			return
		}
		filter.ActorID = &actorID
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	entries, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err)
		writeInternalError(w, "listing audit entries failed")
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditEntryResponse{
			ID:        e.ID,
			EventType: e.EventType,
			ActorID:   e.ActorID,
			SubjectID: e.SubjectID,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type auditEntryResponse struct {
	ID        string `json:"id"`
	EventType string `json:"eventType"`
	ActorID   *int64 `json:"actorId"`
	SubjectID *int64 `json:"subjectId"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// auditAdminAction records an admin operation with the acting admin as
// the actor and the affected user as the subject.
func (s *Server) auditAdminAction(r *http.Request, eventType string, subjectID int64) {
	claims, ok := accessClaimsFromContext(r.Context())
	if !ok {
		return
	}
	actorID, err := auth.ParseSubject(claims.Subject)
	if err != nil {
		return
	}
	s.recordAudit(r.Context(), &audit.Entry{
		EventType: eventType,
		ActorID:   &actorID,
		SubjectID: &subjectID,
	})
}

// idParam parses the {id} URL parameter, answering 400 on garbage.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
