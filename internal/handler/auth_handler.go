package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/clubdesk/internal/auth"
	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は部員を登録し、セッショントークンを発行する。
	Register(ctx context.Context, input auth.RegisterInput) (*model.Member, string, error)
	// Login は認証情報を検証し、セッショントークンを発行する。
	Login(ctx context.Context, memberID, password string) (*model.Member, string, error)
	// GetCurrentMember はトークンのクレームに対応する部員を取得する。
	GetCurrentMember(ctx context.Context, memberID string) (*model.Member, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler は部員登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// registerRequest は部員登録リクエストのボディ。
type registerRequest struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Grade    int    `json:"grade"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	MemberID string `json:"member_id"`
	Password string `json:"password"`
}

// memberResponse は部員情報のAPIレスポンス。
type memberResponse struct {
	MemberID  string    `json:"member_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Grade     int       `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
}

// Register は部員登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "パスワードが空です。",
			Category: "validation",
			Action:   "パスワードを入力してください。",
		})
		return
	}

	member, token, err := h.service.Register(r.Context(), auth.RegisterInput{
		MemberID: req.MemberID,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Grade:    req.Grade,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMemberResponse(member))
}

// Login はログインを処理する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	member, token, err := h.service.Login(r.Context(), req.MemberID, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMemberResponse(member))
}

// Logout はセッションCookieをクリアする。
// POST /auth/logout
// トークンはステートレスなため、サーバー側の破棄処理はない。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログイン部員情報を返す。
// GET /api/members/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	member, err := h.service.GetCurrentMember(r.Context(), memberID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMemberResponse(member))
}

// setSessionCookie はセッショントークンをHTTP Only Cookieに設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// toMemberResponse はmodel.MemberからAPIレスポンスに変換する。
// パスワードハッシュは含めない。
func toMemberResponse(member *model.Member) memberResponse {
	return memberResponse{
		MemberID:  member.MemberID,
		Name:      member.Name,
		Email:     member.Email,
		Role:      string(member.Role),
		Grade:     member.Grade,
		CreatedAt: member.CreatedAt,
	}
}
