package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/servicelog"
)

// ServiceLogServiceInterface は活動報告ハンドラーが必要とするサービスインターフェース。
type ServiceLogServiceInterface interface {
	Submit(ctx context.Context, input servicelog.SubmitInput) (*model.ServiceLog, error)
	ListMine(ctx context.Context, memberID string) ([]*model.ServiceLog, error)
	ListPending(ctx context.Context) ([]*model.ServiceLog, error)
	Review(ctx context.Context, id string, input servicelog.ReviewInput) (*model.ServiceLog, error)
}

// ServiceLogHandler は月次奉仕活動報告のHTTPハンドラー。
type ServiceLogHandler struct {
	service ServiceLogServiceInterface
}

// NewServiceLogHandler はServiceLogHandlerを生成する。
func NewServiceLogHandler(service ServiceLogServiceInterface) *ServiceLogHandler {
	return &ServiceLogHandler{service: service}
}

// submitServiceLogRequest は活動報告提出リクエストのボディ。
type submitServiceLogRequest struct {
	Month       string  `json:"month"`
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
}

// reviewRequest はレビューリクエストのボディ。活動報告とプロジェクトで共用する。
type reviewRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// serviceLogResponse は活動報告のAPIレスポンス。
type serviceLogResponse struct {
	ID          string     `json:"id"`
	MemberID    string     `json:"member_id"`
	Month       string     `json:"month"`
	Description string     `json:"description"`
	Hours       float64    `json:"hours"`
	Status      string     `json:"status"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewNote  string     `json:"review_note,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Submit は活動報告の提出を処理する。
// POST /api/service-logs
func (h *ServiceLogHandler) Submit(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req submitServiceLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	log, err := h.service.Submit(r.Context(), servicelog.SubmitInput{
		MemberID:    memberID,
		Month:       req.Month,
		Description: req.Description,
		Hours:       req.Hours,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toServiceLogResponse(log))
}

// ListMine は自分の活動報告一覧を月の新しい順で返す。
// GET /api/service-logs
func (h *ServiceLogHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	logs, err := h.service.ListMine(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]serviceLogResponse, len(logs))
	for i, l := range logs {
		results[i] = toServiceLogResponse(l)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"service_logs": results,
	})
}

// ListPending はレビュー待ちの活動報告一覧を返す。管理者専用。
// GET /api/service-logs/pending
func (h *ServiceLogHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListPending(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]serviceLogResponse, len(logs))
	for i, l := range logs {
		results[i] = toServiceLogResponse(l)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"service_logs": results,
	})
}

// Review は活動報告の承認・差し戻しを処理する。管理者専用。
// POST /api/service-logs/{id}/review
func (h *ServiceLogHandler) Review(w http.ResponseWriter, r *http.Request) {
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

	log, err := h.service.Review(r.Context(), id, servicelog.ReviewInput{
		Status:     model.ReviewStatus(req.Status),
		ReviewedBy: reviewedBy,
		Note:       req.Note,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toServiceLogResponse(log))
}

// toServiceLogResponse はmodel.ServiceLogからAPIレスポンスに変換する。
func toServiceLogResponse(l *model.ServiceLog) serviceLogResponse {
	return serviceLogResponse{
		ID:          l.ID,
		MemberID:    l.MemberID,
		Month:       l.Month,
		Description: l.Description,
		Hours:       l.Hours,
		Status:      string(l.Status),
		ReviewedBy:  l.ReviewedBy,
		ReviewNote:  l.ReviewNote,
		ReviewedAt:  l.ReviewedAt,
		CreatedAt:   l.CreatedAt,
	}
}
