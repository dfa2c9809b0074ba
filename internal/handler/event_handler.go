package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/event"
	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	Create(ctx context.Context, input event.CreateInput) (*model.Event, error)
	Update(ctx context.Context, id string, input event.UpdateInput) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Event, error)
	ListUpcoming(ctx context.Context) ([]*model.Event, error)
	SignUp(ctx context.Context, eventID, memberID string) (*model.Signup, error)
	CancelSignup(ctx context.Context, eventID, memberID string) error
	MySignups(ctx context.Context, memberID string) ([]*model.Signup, error)
}

// EventHandler はボランティアイベント管理のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// eventRequest はイベント作成・更新リクエストのボディ。
type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
}

// eventResponse はイベントのAPIレスポンス。
type eventResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// signupResponse は参加申込のAPIレスポンス。
type signupResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	MemberID  string    `json:"member_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUpcoming は今後のイベント一覧を開始日時の昇順で返す。
// GET /api/events
func (h *EventHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListUpcoming(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]eventResponse, len(events))
	for i, e := range events {
		results[i] = toEventResponse(e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": results,
	})
}

// Get はイベント詳細を返す。
// GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventResponse(e))
}

// Create はイベントを作成する。管理者専用。
// POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	createdBy, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.Title == "" || req.StartsAt.IsZero() {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "タイトルと開始日時は必須です。",
			Category: "validation",
			Action:   "入力内容を確認してください。",
		})
		return
	}

	e, err := h.service.Create(r.Context(), event.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
		CreatedBy:   createdBy,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEventResponse(e))
}

// Update はイベントを更新する。管理者専用。
// PUT /api/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	e, err := h.service.Update(r.Context(), id, event.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		Capacity:    req.Capacity,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventResponse(e))
}

// Delete はイベントを削除する。管理者専用。
// DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SignUp はイベントへの参加申込を処理する。
// POST /api/events/{id}/signup
func (h *EventHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	signup, err := h.service.SignUp(r.Context(), eventID, memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSignupResponse(signup))
}

// CancelSignup は参加申込の取り消しを処理する。
// DELETE /api/events/{id}/signup
func (h *EventHandler) CancelSignup(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	if err := h.service.CancelSignup(r.Context(), eventID, memberID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MySignups は自分の参加申込一覧を返す。
// GET /api/events/signups/mine
func (h *EventHandler) MySignups(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	signups, err := h.service.MySignups(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]signupResponse, len(signups))
	for i, s := range signups {
		results[i] = toSignupResponse(s)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"signups": results,
	})
}

// toEventResponse はmodel.EventからAPIレスポンスに変換する。
func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Capacity:    e.Capacity,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

// toSignupResponse はmodel.SignupからAPIレスポンスに変換する。
func toSignupResponse(s *model.Signup) signupResponse {
	return signupResponse{
		ID:        s.ID,
		EventID:   s.EventID,
		MemberID:  s.MemberID,
		CreatedAt: s.CreatedAt,
	}
}
