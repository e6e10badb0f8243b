package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seannyti/kfcweb/internal/models"
	pkghttp "github.com/seannyti/kfcweb/pkg/http"
)

// BackupEngineInterface defines the snapshot operations the handler needs.
type BackupEngineInterface interface {
	CreateBackup(ctx context.Context, backupType string) (*models.Backup, error)
	List(ctx context.Context) ([]*models.Backup, error)
	Latest(ctx context.Context) (*models.Backup, error)
	DeleteBackup(ctx context.Context, id string) error
	FilePath(ctx context.Context, id string) (string, error)
}

// BackupSchedulerInterface defines the automatic-backup schedule operations.
type BackupSchedulerInterface interface {
	Settings(ctx context.Context) (*models.BackupSettings, error)
	UpdateSchedule(ctx context.Context, enabled bool, frequency, scheduledTime string) (*models.BackupSettings, error)
}

// BackupHandler handles backup management HTTP requests.
type BackupHandler struct {
	engine    BackupEngineInterface
	scheduler BackupSchedulerInterface
}

func NewBackupHandler(engine BackupEngineInterface, scheduler BackupSchedulerInterface) *BackupHandler {
	return &BackupHandler{engine: engine, scheduler: scheduler}
}

// UpdateScheduleRequest represents the request body for schedule changes
type UpdateScheduleRequest struct {
	AutoBackupEnabled bool   `json:"autoBackupEnabled"`
	Frequency         string `json:"frequency" validate:"required"`
	ScheduledTime     string `json:"scheduledTime" validate:"required"`
}

// List returns all backup records, newest first.
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.engine.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"backups": backups})
}

// Latest returns the most recent completed backup.
func (h *BackupHandler) Latest(w http.ResponseWriter, r *http.Request) {
	backup, err := h.engine.Latest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, backup)
}

// Create runs a manual backup synchronously and returns the record.
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	backup, err := h.engine.CreateBackup(r.Context(), models.BackupTypeManual)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, backup)
}

// Download streams a backup artifact as a file attachment.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.engine.FilePath(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment")
	http.ServeFile(w, r, path)
}

// Delete removes a backup record and its artifact.
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteBackup(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSchedule returns the automatic-backup schedule.
func (h *BackupHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	settings, err := h.scheduler.Settings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// UpdateSchedule validates and persists a new automatic-backup schedule.
func (h *BackupHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	settings, err := h.scheduler.UpdateSchedule(r.Context(), req.AutoBackupEnabled, req.Frequency, req.ScheduledTime)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
