// Package model はドメインモデルを定義する。
package model

import "time"

// RideStatus は送迎リクエスト・オファーの状態を表す。
type RideStatus string

const (
	// RideStatusOpen はマッチング待ち状態。
	RideStatusOpen RideStatus = "open"
	// RideStatusMatched はマッチング確定状態。
	RideStatusMatched RideStatus = "matched"
	// RideStatusCancelled はキャンセル済み状態。
	RideStatusCancelled RideStatus = "cancelled"
)

// RideRequest はイベントへの送迎希望を表す。
type RideRequest struct {
	ID        string
	EventID   string
	MemberID  string
	Note      string
	Status    RideStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RideOffer はイベントへの送迎提供を表す。
// Seatsは提供可能な座席数で、マッチのたびに1ずつ消費される。
type RideOffer struct {
	ID         string
	EventID    string
	MemberID   string
	Seats      int
	SeatsTaken int
	Note       string
	Status     RideStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SeatsLeft は残り座席数を返す。
func (o *RideOffer) SeatsLeft() int {
	return o.Seats - o.SeatsTaken
}

// RideMatch は確定した送迎の組み合わせを表す。
type RideMatch struct {
	ID          string
	EventID     string
	RequestID   string
	OfferID     string
	ConfirmedBy string
	CreatedAt   time.Time
}

// RideCandidate は同一イベント内のリクエストとオファーの候補ペアを表す。
// マッチング確定前の提案として返す。
type RideCandidate struct {
	EventID string
	Request RideRequest
	Offer   RideOffer
}
