// Package auth は部員登録、ログイン、セッショントークン管理を提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/clubdesk/internal/model"
)

// Claims はセッショントークンに埋め込むクレーム。
type Claims struct {
	MemberID string `json:"member_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager はHMAC署名付きセッショントークンの発行と検証を行う。
type TokenManager struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, maxAge time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Issue は部員のセッショントークンを発行する。
func (m *TokenManager) Issue(member *model.Member) (string, error) {
	now := m.now()
	claims := &Claims{
		MemberID: member.MemberID,
		Role:     string(member.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.MemberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、クレームを返す。
// 署名不正や期限切れの場合はエラーを返す。
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// MaxAge はトークンの有効期間を返す。Cookie設定に使用する。
func (m *TokenManager) MaxAge() time.Duration {
	return m.maxAge
}
