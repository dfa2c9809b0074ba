package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/clubdesk/internal/model"
)

// MemberServiceInterface は部員ハンドラーが必要とするサービスインターフェース。
type MemberServiceInterface interface {
	// List は全部員を部員番号昇順で返す。
	List(ctx context.Context) ([]*model.Member, error)
}

// MemberHandler は部員名簿のHTTPハンドラー。
type MemberHandler struct {
	service MemberServiceInterface
}

// NewMemberHandler はMemberHandlerを生成する。
func NewMemberHandler(service MemberServiceInterface) *MemberHandler {
	return &MemberHandler{service: service}
}

// List は部員名簿を返す。管理者専用。
// GET /api/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]memberResponse, len(members))
	for i, m := range members {
		results[i] = toMemberResponse(m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"members": results,
	})
}
