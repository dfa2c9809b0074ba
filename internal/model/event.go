// Package model はドメインモデルを定義する。
package model

import "time"

// Event はボランティアイベントを表す。
// Capacityが0の場合は定員なしとして扱う。
type Event struct {
	ID          string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Signup はイベントへの参加申込を表す。
// 同一イベント・同一部員の重複申込はevent_signupsのUNIQUE制約で防止する。
type Signup struct {
	ID        string
	EventID   string
	MemberID  string
	CreatedAt time.Time
}
