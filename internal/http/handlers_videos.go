package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openvid/openvid/internal/domain/model"
	"github.com/openvid/openvid/internal/service"
)

// VideoHandlers bundles the video API endpoints.
type VideoHandlers struct {
	Svc   *service.VideoService
	Quota *service.QuotaService
}

// Submit handles POST /api/videos.
func (h *VideoHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req model.SubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), userID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/videos. The optional updatedSince query parameter is
// a Unix millisecond timestamp restricting the result to recently touched jobs.
func (h *VideoHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("updatedSince"); raw != "" {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_parameter",
				Err:     errors.New("updatedSince must be a unix millisecond timestamp"),
			})
			return
		}
		t := time.UnixMilli(millis).UTC()
		since = &t
	}

	jobs, err := h.Svc.List(r.Context(), userID, since)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}

	WriteJSON(w, http.StatusOK, jobs)
}

// Get handles GET /api/videos/{id}.
func (h *VideoHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	job, err := h.Svc.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// deleteVideosRequest is the body of DELETE /api/videos.
type deleteVideosRequest struct {
	JobIDs []string `json:"jobIds"`
}

// Delete handles DELETE /api/videos.
func (h *VideoHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	var req deleteVideosRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.JobIDs) == 0 {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_parameter",
			Err:     errors.New("jobIds must not be empty"),
		})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), userID, req.JobIDs)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// QuotaStatus handles GET /api/quota.
func (h *VideoHandlers) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	status, err := h.Quota.GetQuota(r.Context(), userID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

func writeMissingIdentity(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}
