// Package model はドメインモデルを定義する。
package model

import "time"

// ReviewStatus は提出物のレビュー状態を表す。
type ReviewStatus string

const (
	// ReviewStatusPending はレビュー待ち状態。
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusApproved は承認済み状態。
	ReviewStatusApproved ReviewStatus = "approved"
	// ReviewStatusRejected は差し戻し状態。
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ServiceLog は月次の奉仕活動報告を表す。
// Monthは"2006-01"形式。同一部員・同一月の重複提出は許可しない。
type ServiceLog struct {
	ID          string
	MemberID    string
	Month       string
	Description string
	Hours       float64
	Status      ReviewStatus
	ReviewedBy  string
	ReviewNote  string
	ReviewedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
