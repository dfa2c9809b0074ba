// Package model はドメインモデルを定義する。
package model

import "time"

// Project は個人奉仕プロジェクト（独立プロジェクト）の申請を表す。
// 承認されるまで活動時間として計上されない。
type Project struct {
	ID           string
	MemberID     string
	Title        string
	Description  string
	PlannedHours float64
	Status       ReviewStatus
	ReviewedBy   string
	ReviewNote   string
	ReviewedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
