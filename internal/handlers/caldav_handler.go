package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mealsync/server/internal/caldav"
	"github.com/mealsync/server/internal/crypto"
	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/middleware"
	"github.com/mealsync/server/internal/models"
	"github.com/mealsync/server/internal/observability"
	"github.com/mealsync/server/internal/repository"
	"github.com/mealsync/server/internal/services"
)

// CaldavHandler handles CalDAV configuration and sync endpoints
type CaldavHandler struct {
	accountRepo repository.CaldavAccountRepo
	statusRepo  repository.SyncStatusRepo
	trigger     *services.EventTrigger
	cipher      *crypto.Cipher
	bus         *events.Bus
	timeout     time.Duration
	logger      *observability.Logger
}

// NewCaldavHandler creates a new CaldavHandler
func NewCaldavHandler(
	accountRepo repository.CaldavAccountRepo,
	statusRepo repository.SyncStatusRepo,
	trigger *services.EventTrigger,
	cipher *crypto.Cipher,
	bus *events.Bus,
	timeout time.Duration,
) *CaldavHandler {
	return &CaldavHandler{
		accountRepo: accountRepo,
		statusRepo:  statusRepo,
		trigger:     trigger,
		cipher:      cipher,
		bus:         bus,
		timeout:     timeout,
		logger:      observability.GetLogger().WithField("component", "caldav_handler"),
	}
}

// GetConfig returns the current user's CalDAV configuration
// @Summary Get CalDAV config
// @Description Returns the current user's CalDAV server configuration without password material
// @Tags caldav
// @Produce json
// @Success 200 {object} models.CaldavAccountResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/caldav/config [get]
func (h *CaldavHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.accountRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if account == nil {
		http.Error(w, "CalDAV is not configured", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account.ToResponse())
}

// SaveConfig creates or updates the current user's CalDAV configuration
// @Summary Save CalDAV config
// @Description Creates or replaces the user's CalDAV server configuration. An empty password keeps the stored one.
// @Tags caldav
// @Accept json
// @Produce json
// @Param request body models.SaveCaldavAccountRequest true "Config"
// @Success 200 {object} models.CaldavAccountResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/caldav/config [put]
func (h *CaldavHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.SaveCaldavAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, err := h.accountRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	account := &models.CaldavAccount{
		UserID:          user.ID,
		ServerURL:       req.ServerURL,
		Username:        req.Username,
		Enabled:         req.Enabled,
		BreakfastWindow: orDefault(req.BreakfastWindow, models.DefaultBreakfastWindow),
		LunchWindow:     orDefault(req.LunchWindow, models.DefaultLunchWindow),
		DinnerWindow:    orDefault(req.DinnerWindow, models.DefaultDinnerWindow),
		SnackWindow:     orDefault(req.SnackWindow, models.DefaultSnackWindow),
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if existing != nil {
		account.CreatedAt = existing.CreatedAt
	}

	switch {
	case req.Password != "":
		enc, err := h.cipher.Encrypt(req.Password)
		if err != nil {
			h.logger.Errorf("failed to encrypt credential: %v", err)
			http.Error(w, "Failed to store credential", http.StatusInternalServerError)
			return
		}
		account.PasswordEnc = enc
	case existing != nil:
		account.PasswordEnc = existing.PasswordEnc
	default:
		http.Error(w, "Password is required", http.StatusBadRequest)
		return
	}

	if err := account.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.accountRepo.Upsert(r.Context(), account); err != nil {
		http.Error(w, "Failed to save config", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.ConfigSaved, &events.ConfigSavedEvent{UserID: user.ID})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account.ToResponse())
}

// DeleteConfig removes the current user's CalDAV configuration
// @Summary Delete CalDAV config
// @Description Removes the user's CalDAV server configuration
// @Tags caldav
// @Success 204 "Deleted"
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/caldav/config [delete]
func (h *CaldavHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	deleted, err := h.accountRepo.Delete(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "CalDAV is not configured", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TestConnection probes a CalDAV server with the supplied credentials
// @Summary Test CalDAV connection
// @Description Probes the given server with PROPFIND without saving anything
// @Tags caldav
// @Accept json
// @Produce json
// @Param request body models.TestConnectionRequest true "Credentials"
// @Success 200 {object} models.TestConnectionResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/caldav/test [post]
func (h *CaldavHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.TestConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ServerURL == "" || req.Username == "" || req.Password == "" {
		http.Error(w, "Server URL, username and password are required", http.StatusBadRequest)
		return
	}

	response := models.TestConnectionResponse{Success: true}
	client, err := caldav.NewClient(req.ServerURL, req.Username, req.Password, h.timeout)
	if err == nil {
		err = client.TestConnection(r.Context())
	}
	if err != nil {
		response.Success = false
		response.Error = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// TriggerSync starts a full resync of the user's future planned items
// @Summary Trigger full resync
// @Description Starts a background resync of all future planned items
// @Tags caldav
// @Produce json
// @Success 202 {object} models.TriggerSyncResponse
// @Failure 409 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/caldav/sync [post]
func (h *CaldavHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.accountRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if account == nil || !account.Enabled {
		http.Error(w, "CalDAV is not configured", http.StatusConflict)
		return
	}

	// completion is signalled over the websocket channel
	go func() {
		if _, err := h.trigger.FullResync(context.Background(), user.ID); err != nil {
			h.logger.WithField("user_id", user.ID).Errorf("full resync failed: %v", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(models.TriggerSyncResponse{Started: true})
}

// RetrySync re-attempts the user's pending and failed items
// @Summary Retry failed syncs
// @Description Re-attempts every pending or failed item for the user
// @Tags caldav
// @Produce json
// @Success 200 {object} models.RetrySyncResult
// @Failure 409 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/caldav/retry [post]
func (h *CaldavHandler) RetrySync(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.trigger.RetryUserSync(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			http.Error(w, "CalDAV is not configured", http.StatusConflict)
			return
		}
		http.Error(w, "Retry failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// ListStatus returns the user's sync status rows
// @Summary List sync statuses
// @Description Paginated sync status list, optionally filtered by state
// @Tags caldav
// @Produce json
// @Param status query string false "Filter by state (pending|synced|failed|removed)"
// @Param skip query int false "Rows to skip"
// @Param take query int false "Rows to return (default 50, max 200)"
// @Success 200 {object} models.SyncStatusListResponse
// @Security ApiKeyAuth
// @Router /api/caldav/status [get]
func (h *CaldavHandler) ListStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	statusFilter := r.URL.Query().Get("status")
	skip := parseIntParam(r, "skip", 0)
	take := parseIntParam(r, "take", 50)
	if take > 200 {
		take = 200
	}

	statuses, err := h.statusRepo.ListByUser(r.Context(), user.ID, statusFilter, skip, take)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	total, err := h.statusRepo.CountByUser(r.Context(), user.ID, statusFilter)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if statuses == nil {
		statuses = []*models.SyncStatus{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.SyncStatusListResponse{
		Statuses:   statuses,
		TotalCount: total,
		Skip:       skip,
		Take:       take,
	})
}

// StatusSummary returns per-state row counts for the user
// @Summary Sync status summary
// @Description Per-state counts of the user's sync status rows
// @Tags caldav
// @Produce json
// @Success 200 {object} models.SyncSummary
// @Security ApiKeyAuth
// @Router /api/caldav/status/summary [get]
func (h *CaldavHandler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.statusRepo.Summary(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
