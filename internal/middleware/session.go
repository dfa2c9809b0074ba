// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/clubdesk/internal/auth"
)

// SessionCookieName はセッショントークンを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// memberIDContextKey はリクエストコンテキストに部員番号を格納するためのキー。
	memberIDContextKey = contextKey("member_id")
	// roleContextKey はリクエストコンテキストにロールを格納するためのキー。
	roleContextKey = contextKey("role")
)

// TokenVerifier はセッショントークンの検証に必要なインターフェース。
// auth.TokenManagerの部分集合として定義する。
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// NewSessionMiddleware はHTTP Only Cookie（またはAuthorizationヘッダー）から
// セッショントークンを読み取り、有効性を検証するミドルウェアを返す。
// 認証済みの部員番号とロールをリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionTokenFromRequest(r)
			if token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				// 署名不正・期限切れはいずれも401として扱う
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithMember(r.Context(), claims.MemberID, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware は管理者ロールのみを通過させるミドルウェアを返す。
// セッションミドルウェアの後に配置する。
func NewAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, err := RoleFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if role != "admin" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionTokenFromRequest はCookieまたはBearerヘッダーからトークンを取り出す。
// Cookieを優先する。
func sessionTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// MemberIDFromContext はリクエストコンテキストから部員番号を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func MemberIDFromContext(ctx context.Context) (string, error) {
	memberID, ok := ctx.Value(memberIDContextKey).(string)
	if !ok || memberID == "" {
		return "", fmt.Errorf("member ID not found in context")
	}
	return memberID, nil
}

// RoleFromContext はリクエストコンテキストからロールを取得する。
func RoleFromContext(ctx context.Context) (string, error) {
	role, ok := ctx.Value(roleContextKey).(string)
	if !ok || role == "" {
		return "", fmt.Errorf("role not found in context")
	}
	return role, nil
}

// ContextWithMember はコンテキストに部員番号とロールを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithMember(ctx context.Context, memberID, role string) context.Context {
	ctx = context.WithValue(ctx, memberIDContextKey, memberID)
	return context.WithValue(ctx, roleContextKey, role)
}
