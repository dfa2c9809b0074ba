// Package model はドメインモデルを定義する。
package model

import "time"

// ClosedBy はセッションを終了させた主体を表す。
type ClosedBy string

const (
	// ClosedBySelf は部員本人によるチェックアウト。
	ClosedBySelf ClosedBy = "self"
	// ClosedByAdmin は管理者による強制チェックアウト。
	ClosedByAdmin ClosedBy = "admin"
	// ClosedBySchedule はスケジュールスイープによる強制チェックアウト。
	ClosedBySchedule ClosedBy = "schedule"
)

// Forced は本人以外による終了かどうかを返す。
func (c ClosedBy) Forced() bool {
	return c != ClosedBySelf
}

// ActiveSession は現在入室中の部員の在室セッションを表す。
// 1部員につき同時に最大1レコード（active_sessions.member_idのUNIQUE制約で保証）。
type ActiveSession struct {
	MemberID  string
	StartedAt time.Time
}

// ClosedSession は終了した在室セッションの履歴レコードを表す。
// 追記専用で、1回のチェックアウトにつき正確に1レコード生成される。
type ClosedSession struct {
	ID        string
	MemberID  string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Forced    bool
	ClosedBy  ClosedBy
}

// NewClosedSession は終了済みセッションレコードを構築する。
// 保存済み開始時刻と現在時刻の間に時計のずれがあり経過時間が負になる場合は、
// 破損入力として0に切り詰める。
func NewClosedSession(id, memberID string, startedAt, endedAt time.Time, closedBy ClosedBy) *ClosedSession {
	duration := endedAt.Sub(startedAt)
	if duration < 0 {
		duration = 0
	}
	return &ClosedSession{
		ID:        id,
		MemberID:  memberID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Duration:  duration,
		Forced:    closedBy.Forced(),
		ClosedBy:  closedBy,
	}
}

// PresenceSummary は部員の在室履歴の集計を表す。
type PresenceSummary struct {
	MemberID      string
	SessionCount  int
	TotalDuration time.Duration
}

// TotalHours は合計在室時間を時間単位（小数）で返す。
func (s PresenceSummary) TotalHours() float64 {
	return s.TotalDuration.Hours()
}
