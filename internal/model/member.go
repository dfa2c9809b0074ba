// Package model はドメインモデルを定義する。
package model

import "time"

// Role は部員の権限ロールを表す。
type Role string

const (
	// RoleMember は一般部員ロール。
	RoleMember Role = "member"
	// RoleAdmin は管理者（顧問・役員）ロール。
	RoleAdmin Role = "admin"
)

// Member は部員を表す。
// MemberIDは6桁の部員番号で、全状態のキーとして使用する。
type Member struct {
	MemberID     string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Grade        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin は管理者ロールかどうかを返す。
func (m *Member) IsAdmin() bool {
	return m.Role == RoleAdmin
}
