// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// ErrDuplicateKey は一意制約違反を表すセンチネルエラー。
// チェックイン・イベント申込・活動報告のCAS（先に挿入した側が勝つ）で使用する。
var ErrDuplicateKey = errors.New("duplicate key")

// ErrConflict は前提条件の不成立（座席の枯渇、状態の競合）を表すセンチネルエラー。
var ErrConflict = errors.New("conflict")

// MemberRepository は部員データの永続化インターフェース。
type MemberRepository interface {
	// FindByID は指定部員番号の部員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, memberID string) (*model.Member, error)

	// FindByEmail はメールアドレスで部員を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Member, error)

	// Create は部員を作成する。部員番号またはメールアドレスが重複する場合は
	// ErrDuplicateKeyをラップしたエラーを返す。
	Create(ctx context.Context, member *model.Member) error

	// List は全部員を部員番号昇順で返す。
	List(ctx context.Context) ([]*model.Member, error)
}

// PresenceRepository は在室セッションと履歴の永続化インターフェース。
// 在室ストアと履歴ストアの両方を排他的に所有し、
// CloseActiveの原子性（履歴追記と在室削除が不可分）を実装側が保証する。
type PresenceRepository interface {
	// InsertActive は在室セッションを作成する。
	// 同一部員の在室セッションが既に存在する場合はErrDuplicateKeyをラップしたエラーを返す。
	// この挿入自体が「1部員1セッション」の線形化ポイントとなる。
	InsertActive(ctx context.Context, session *model.ActiveSession) error

	// FindActive は指定部員の在室セッションを取得する。見つからない場合はnilを返す。
	FindActive(ctx context.Context, memberID string) (*model.ActiveSession, error)

	// CountActive は現在の在室セッション数を返す。
	CountActive(ctx context.Context) (int, error)

	// ListActive は在室セッション一覧を開始時刻の新しい順で返す。
	// 結果は取得時点のスナップショットであり、返却直後に古くなりうる。
	ListActive(ctx context.Context) ([]*model.ActiveSession, error)

	// CloseActive は在室セッションを終了し履歴レコードを生成する。
	// 在室レコードの削除と履歴の追記を同一トランザクションで行う。
	// 在室セッションが存在しない場合は(nil, nil)を返し、変更は発生しない。
	CloseActive(ctx context.Context, memberID, historyID string, endedAt time.Time, closedBy model.ClosedBy) (*model.ClosedSession, error)

	// SummaryByMember は指定部員の終了済みセッションの件数と合計時間を返す。
	// 履歴がない場合はゼロ値を返す。
	SummaryByMember(ctx context.Context, memberID string) (*model.PresenceSummary, error)

	// ListHistoryByMember は指定部員の終了済みセッションを開始時刻の新しい順で返す。
	// limitが0以下の場合は全件を返す。
	ListHistoryByMember(ctx context.Context, memberID string, limit int) ([]*model.ClosedSession, error)
}

// AnnouncementRepository はお知らせデータの永続化インターフェース。
type AnnouncementRepository interface {
	// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Announcement, error)

	// Create はお知らせを作成する。
	Create(ctx context.Context, a *model.Announcement) error

	// Update はお知らせを更新する。
	Update(ctx context.Context, a *model.Announcement) error

	// DeleteByID は指定IDのお知らせを削除する。削除した場合はtrueを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// List は全お知らせをピン留め優先・作成日時の新しい順で返す。
	List(ctx context.Context) ([]*model.Announcement, error)
}

// EventRepository はイベントと申込データの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, e *model.Event) error

	// Update はイベントを更新する。
	Update(ctx context.Context, e *model.Event) error

	// DeleteByID は指定IDのイベントを削除する。削除した場合はtrueを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// ListUpcoming は開始時刻がfrom以降のイベントを開始時刻昇順で返す。
	ListUpcoming(ctx context.Context, from time.Time) ([]*model.Event, error)

	// CreateSignup は申込を作成する。
	// 同一イベント・同一部員の申込が既に存在する場合はErrDuplicateKeyをラップしたエラーを返す。
	CreateSignup(ctx context.Context, s *model.Signup) error

	// DeleteSignup はイベントと部員の組で申込を削除する。削除した場合はtrueを返す。
	DeleteSignup(ctx context.Context, eventID, memberID string) (bool, error)

	// CountSignups はイベントの申込数を返す。
	CountSignups(ctx context.Context, eventID string) (int, error)

	// ListSignupsByMember は部員の申込一覧を作成日時の新しい順で返す。
	ListSignupsByMember(ctx context.Context, memberID string) ([]*model.Signup, error)
}

// ServiceLogRepository は月次奉仕活動報告の永続化インターフェース。
type ServiceLogRepository interface {
	// FindByID は指定IDの活動報告を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ServiceLog, error)

	// Create は活動報告を作成する。
	// 同一部員・同一月の報告が既に存在する場合はErrDuplicateKeyをラップしたエラーを返す。
	Create(ctx context.Context, l *model.ServiceLog) error

	// ListByMember は部員の活動報告を月の新しい順で返す。
	ListByMember(ctx context.Context, memberID string) ([]*model.ServiceLog, error)

	// ListByStatus は指定状態の活動報告を提出日時の古い順で返す。
	ListByStatus(ctx context.Context, status model.ReviewStatus) ([]*model.ServiceLog, error)

	// UpdateReview はレビュー結果を記録する。
	UpdateReview(ctx context.Context, id string, status model.ReviewStatus, reviewedBy, note string, reviewedAt time.Time) error
}

// ProjectRepository は個人奉仕プロジェクトの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// Create はプロジェクト申請を作成する。
	Create(ctx context.Context, p *model.Project) error

	// ListByMember は部員のプロジェクトを作成日時の新しい順で返す。
	ListByMember(ctx context.Context, memberID string) ([]*model.Project, error)

	// ListByStatus は指定状態のプロジェクトを提出日時の古い順で返す。
	ListByStatus(ctx context.Context, status model.ReviewStatus) ([]*model.Project, error)

	// UpdateReview はレビュー結果を記録する。
	UpdateReview(ctx context.Context, id string, status model.ReviewStatus, reviewedBy, note string, reviewedAt time.Time) error
}

// RideRepository は送迎リクエスト・オファー・マッチの永続化インターフェース。
type RideRepository interface {
	// CreateRequest は送迎リクエストを作成する。
	// 同一イベントへの重複リクエストはErrDuplicateKeyをラップしたエラーを返す。
	CreateRequest(ctx context.Context, r *model.RideRequest) error

	// CreateOffer は送迎オファーを作成する。
	// 同一イベントへの重複オファーはErrDuplicateKeyをラップしたエラーを返す。
	CreateOffer(ctx context.Context, o *model.RideOffer) error

	// FindRequestByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
	FindRequestByID(ctx context.Context, id string) (*model.RideRequest, error)

	// FindOfferByID は指定IDのオファーを取得する。見つからない場合はnilを返す。
	FindOfferByID(ctx context.Context, id string) (*model.RideOffer, error)

	// ListOpenRequestsByEvent はイベントのマッチング待ちリクエストを作成日時の古い順で返す。
	ListOpenRequestsByEvent(ctx context.Context, eventID string) ([]*model.RideRequest, error)

	// ListOpenOffersByEvent はイベントの空き座席があるオファーを作成日時の古い順で返す。
	ListOpenOffersByEvent(ctx context.Context, eventID string) ([]*model.RideOffer, error)

	// CreateMatch はマッチを確定する。マッチの挿入、リクエストの状態更新、
	// オファーの座席消費を同一トランザクションで行う。
	// 座席が残っていない、またはリクエストがopenでない場合は
	// ErrConflictをラップしたエラーを返す。
	CreateMatch(ctx context.Context, m *model.RideMatch) error

	// ListMatchesByEvent はイベントの確定済みマッチを作成日時の古い順で返す。
	ListMatchesByEvent(ctx context.Context, eventID string) ([]*model.RideMatch, error)
}
