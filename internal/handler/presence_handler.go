// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/member"
	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
)

// PresenceServiceInterface は在室ハンドラーが必要とするサービスインターフェース。
type PresenceServiceInterface interface {
	// CheckIn は部員をチェックインする。
	CheckIn(ctx context.Context, memberID string) (*model.ActiveSession, error)
	// CheckOut は部員をチェックアウトする。
	CheckOut(ctx context.Context, memberID string, closedBy model.ClosedBy) (*model.ClosedSession, error)
	// ForceCheckOut は管理者が指定部員を強制チェックアウトさせる。
	ForceCheckOut(ctx context.Context, memberID string) (*model.ClosedSession, error)
	// Status は部員の現在の在室状態を返す。
	Status(ctx context.Context, memberID string) (*model.ActiveSession, error)
	// ListActive は在室者一覧を返す。
	ListActive(ctx context.Context) ([]*model.ActiveSession, error)
	// CloseAll は全在室セッションを終了する。
	CloseAll(ctx context.Context, closedBy model.ClosedBy) (int, error)
}

// PresenceHistoryInterface は在室履歴ハンドラーが必要とするサービスインターフェース。
type PresenceHistoryInterface interface {
	// Summary は部員の在室履歴の集計を返す。
	Summary(ctx context.Context, memberID string) (*model.PresenceSummary, error)
	// History は部員の終了済みセッション一覧を返す。
	History(ctx context.Context, memberID string, limit int) ([]*model.ClosedSession, error)
}

// PresenceHandler は在室管理のHTTPハンドラー。
type PresenceHandler struct {
	service PresenceServiceInterface
	history PresenceHistoryInterface
}

// NewPresenceHandler はPresenceHandlerを生成する。
func NewPresenceHandler(service PresenceServiceInterface, history PresenceHistoryInterface) *PresenceHandler {
	return &PresenceHandler{
		service: service,
		history: history,
	}
}

// activeSessionResponse は在室セッションのAPIレスポンス。
type activeSessionResponse struct {
	MemberID  string    `json:"member_id"`
	StartedAt time.Time `json:"started_at"`
}

// closedSessionResponse は終了済みセッションのAPIレスポンス。
type closedSessionResponse struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
	Forced     bool      `json:"forced"`
	ClosedBy   string    `json:"closed_by"`
}

// presenceStatusResponse は在室状態のAPIレスポンス。
type presenceStatusResponse struct {
	CheckedIn bool                   `json:"checked_in"`
	Session   *activeSessionResponse `json:"session,omitempty"`
}

// presenceSummaryResponse は在室履歴集計のAPIレスポンス。
type presenceSummaryResponse struct {
	MemberID        string  `json:"member_id"`
	SessionCount    int     `json:"session_count"`
	TotalDurationMs int64   `json:"total_duration_ms"`
	TotalHours      float64 `json:"total_hours"`
}

// CheckIn はチェックインを処理する。
// POST /api/presence/checkin
func (h *PresenceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	session, err := h.service.CheckIn(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toActiveSessionResponse(session))
}

// CheckOut はチェックアウトを処理する。
// POST /api/presence/checkout
func (h *PresenceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	closed, err := h.service.CheckOut(r.Context(), memberID, model.ClosedBySelf)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClosedSessionResponse(closed))
}

// Status は自分の在室状態を返す。
// GET /api/presence/status
func (h *PresenceHandler) Status(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	session, err := h.service.Status(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := presenceStatusResponse{CheckedIn: session != nil}
	if session != nil {
		s := toActiveSessionResponse(session)
		resp.Session = &s
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListActive は在室者一覧を返す。
// 一般部員には部員番号を伏せた表示を返し、管理者にはそのまま返す。
// GET /api/presence/active
func (h *PresenceHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	role, _ := middleware.RoleFromContext(r.Context())
	isAdmin := role == "admin"

	results := make([]activeSessionResponse, len(sessions))
	for i, s := range sessions {
		results[i] = toActiveSessionResponse(s)
		if !isAdmin {
			results[i].MemberID = member.MaskMemberID(results[i].MemberID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":    len(results),
		"sessions": results,
	})
}

// Summary は自分の在室履歴の集計を返す。
// GET /api/presence/summary
func (h *PresenceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	summary, err := h.history.Summary(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(presenceSummaryResponse{
		MemberID:        summary.MemberID,
		SessionCount:    summary.SessionCount,
		TotalDurationMs: summary.TotalDuration.Milliseconds(),
		TotalHours:      summary.TotalHours(),
	})
}

// History は自分の終了済みセッション一覧を返す。
// GET /api/presence/history?limit=50
func (h *PresenceHandler) History(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitには0以上の整数を指定してください。",
				Category: "validation",
				Action:   "クエリパラメータを確認してください。",
			})
			return
		}
		limit = parsed
	}

	sessions, err := h.history.History(r.Context(), memberID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]closedSessionResponse, len(sessions))
	for i, s := range sessions {
		results[i] = toClosedSessionResponse(s)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessions": results,
	})
}

// ForceCheckOut は管理者による強制チェックアウトを処理する。
// POST /api/presence/members/{memberID}/checkout
func (h *PresenceHandler) ForceCheckOut(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")

	closed, err := h.service.ForceCheckOut(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClosedSessionResponse(closed))
}

// Sweep は管理者による全員一括チェックアウトを処理する。
// POST /api/presence/sweep
func (h *PresenceHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	closedCount, err := h.service.CloseAll(r.Context(), model.ClosedByAdmin)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"closed_count": closedCount,
	})
}

// --- ヘルパー関数 ---

// toActiveSessionResponse はmodel.ActiveSessionからAPIレスポンスに変換する。
func toActiveSessionResponse(session *model.ActiveSession) activeSessionResponse {
	return activeSessionResponse{
		MemberID:  session.MemberID,
		StartedAt: session.StartedAt,
	}
}

// toClosedSessionResponse はmodel.ClosedSessionからAPIレスポンスに変換する。
func toClosedSessionResponse(closed *model.ClosedSession) closedSessionResponse {
	return closedSessionResponse{
		ID:         closed.ID,
		MemberID:   closed.MemberID,
		StartedAt:  closed.StartedAt,
		EndedAt:    closed.EndedAt,
		DurationMs: closed.Duration.Milliseconds(),
		Forced:     closed.Forced,
		ClosedBy:   string(closed.ClosedBy),
	}
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorizedResponse は認証切れレスポンスを書き込む。
func writeUnauthorizedResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequestResponse はリクエストボディ解析失敗のレスポンスを書き込む。
func writeInvalidRequestResponse(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
