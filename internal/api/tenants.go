package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fenrislabs/auth-service/internal/audit"
	"github.com/fenrislabs/auth-service/internal/tenant"
)

type tenantResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID:      t.ID,
		Name:    t.Name,
		Address: t.Address,
	}
}

type tenantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// handleListTenants returns all tenants.
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.tenants.List(r.Context())
	if err != nil {
		s.logger.Error("listing tenants", "error", err)
		writeInternalError(w, "listing tenants failed")
		return
	}

	resp := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, toTenantResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetTenant returns a single tenant by id.
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	t, err := s.tenants.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("loading tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "loading tenant failed")
		return
	}
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

// handleCreateTenant creates a tenant.
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Address == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "name and address are required")
		return
	}

	t := &tenant.Tenant{Name: req.Name, Address: req.Address}
	if err := s.tenants.Create(r.Context(), t); err != nil {
		s.logger.Error("creating tenant", "error", err)
		writeInternalError(w, "creating tenant failed")
		return
	}

	s.auditAdminAction(r, audit.EventTenantCreated, t.ID)
	s.logger.Info("tenant created", "tenant_id", t.ID, "name", t.Name)
	writeJSON(w, http.StatusCreated, toTenantResponse(t))
}

// handleUpdateTenant applies a partial update to a tenant.
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req struct {
		Name    *string `json:"name"`
		Address *string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	t, err := s.tenants.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("loading tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "updating tenant failed")
		return
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Address != nil {
		t.Address = *req.Address
	}
	if t.Name == "" || t.Address == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "name and address must not be empty")
		return
	}

	if err := s.tenants.Update(r.Context(), t); err != nil {
		s.logger.Error("updating tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "updating tenant failed")
		return
	}

	s.auditAdminAction(r, audit.EventTenantUpdated, t.ID)
	writeJSON(w, http.StatusOK, toTenantResponse(t))
}

// handleDeleteTenant removes a tenant, detaching its members.
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	if err := s.tenants.Delete(r.Context(), id); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			writeNotFound(w, "tenant not found")
			return
		}
		s.logger.Error("deleting tenant", "error", err, "tenant_id", id)
		writeInternalError(w, "deleting tenant failed")
		return
	}

	s.auditAdminAction(r, audit.EventTenantDeleted, id)
	w.WriteHeader(http.StatusNoContent)
}
