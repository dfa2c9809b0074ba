package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Submit(ctx context.Context, input project.SubmitInput) (*model.Project, error)
	ListMine(ctx context.Context, memberID string) ([]*model.Project, error)
	ListPending(ctx context.Context) ([]*model.Project, error)
	Review(ctx context.Context, id string, input project.ReviewInput) (*model.Project, error)
}

// ProjectHandler は個人奉仕プロジェクト申請のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// submitProjectRequest はプロジェクト申請リクエストのボディ。
type submitProjectRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PlannedHours float64 `json:"planned_hours"`
}

// projectResponse はプロジェクトのAPIレスポンス。
type projectResponse struct {
	ID           string     `json:"id"`
	MemberID     string     `json:"member_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PlannedHours float64    `json:"planned_hours"`
	Status       string     `json:"status"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewNote   string     `json:"review_note,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Submit はプロジェクト申請の提出を処理する。
// POST /api/projects
func (h *ProjectHandler) Submit(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req submitProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "タイトルが空です。",
			Category: "validation",
			Action:   "タイトルを入力してください。",
		})
		return
	}

	p, err := h.service.Submit(r.Context(), project.SubmitInput{
		MemberID:     memberID,
		Title:        req.Title,
		Description:  req.Description,
		PlannedHours: req.PlannedHours,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// ListMine は自分のプロジェクト一覧を返す。
// GET /api/projects
func (h *ProjectHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	projects, err := h.service.ListMine(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"projects": results,
	})
}

// ListPending はレビュー待ちのプロジェクト一覧を返す。管理者専用。
// GET /api/projects/pending
func (h *ProjectHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListPending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]projectResponse, len(projects))
	for i, p := range projects {
		results[i] = toProjectResponse(p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"projects": results,
	})
}

// Review はプロジェクト申請の承認・差し戻しを処理する。管理者専用。
// POST /api/projects/{id}/review
func (h *ProjectHandler) Review(w http.ResponseWriter, r *http.Request) {
	reviewedBy, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	id := chi.URLParam(r, "id")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	p, err := h.service.Review(r.Context(), id, project.ReviewInput{
		Status:     model.ReviewStatus(req.Status),
		ReviewedBy: reviewedBy,
		Note:       req.Note,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProjectResponse(p))
}

// toProjectResponse はmodel.ProjectからAPIレスポンスに変換する。
func toProjectResponse(p *model.Project) projectResponse {
	return projectResponse{
		ID:           p.ID,
		MemberID:     p.MemberID,
		Title:        p.Title,
		Description:  p.Description,
		PlannedHours: p.PlannedHours,
		Status:       string(p.Status),
		ReviewedBy:   p.ReviewedBy,
		ReviewNote:   p.ReviewNote,
		ReviewedAt:   p.ReviewedAt,
		CreatedAt:    p.CreatedAt,
	}
}
