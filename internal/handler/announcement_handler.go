package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/announcement"
	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
)

// AnnouncementServiceInterface はお知らせハンドラーが必要とするサービスインターフェース。
type AnnouncementServiceInterface interface {
	Create(ctx context.Context, input announcement.CreateInput) (*model.Announcement, error)
	Update(ctx context.Context, id string, input announcement.UpdateInput) (*model.Announcement, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Announcement, error)
	List(ctx context.Context) ([]*model.Announcement, error)
}

// AnnouncementHandler はお知らせ管理のHTTPハンドラー。
type AnnouncementHandler struct {
	service AnnouncementServiceInterface
}

// NewAnnouncementHandler はAnnouncementHandlerを生成する。
func NewAnnouncementHandler(service AnnouncementServiceInterface) *AnnouncementHandler {
	return &AnnouncementHandler{service: service}
}

// announcementRequest はお知らせ作成・更新リクエストのボディ。
type announcementRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

// announcementResponse はお知らせのAPIレスポンス。
type announcementResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List はお知らせ一覧を返す。ピン留めが先頭に来る。
// GET /api/announcements
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	announcements, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]announcementResponse, len(announcements))
	for i, a := range announcements {
		results[i] = toAnnouncementResponse(a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"announcements": results,
	})
}

// Get はお知らせ詳細を返す。
// GET /api/announcements/{id}
func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAnnouncementResponse(a))
}

// Create はお知らせを作成する。管理者専用。
// POST /api/announcements
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	authorID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req announcementRequest
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

	a, err := h.service.Create(r.Context(), announcement.CreateInput{
		Title:    req.Title,
		Body:     req.Body,
		AuthorID: authorID,
		Pinned:   req.Pinned,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toAnnouncementResponse(a))
}

// Update はお知らせを更新する。管理者専用。
// PUT /api/announcements/{id}
func (h *AnnouncementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	a, err := h.service.Update(r.Context(), id, announcement.UpdateInput{
		Title:  req.Title,
		Body:   req.Body,
		Pinned: req.Pinned,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAnnouncementResponse(a))
}

// Delete はお知らせを削除する。管理者専用。
// DELETE /api/announcements/{id}
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toAnnouncementResponse はmodel.AnnouncementからAPIレスポンスに変換する。
func toAnnouncementResponse(a *model.Announcement) announcementResponse {
	return announcementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		AuthorID:  a.AuthorID,
		Pinned:    a.Pinned,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
