// Package presence は在室セッション（チェックイン・チェックアウト）のドメインロジックを提供する。
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
)

// Ledger は在室台帳のサービス層。
// チェックイン・チェックアウト・強制退室のビジネスロジックを提供する。
// 「1部員につき同時に最大1在室セッション」はリポジトリの挿入一意性に委ね、
// サービス層は事前検査を行わない（検査と挿入の間の競合を避けるため）。
type Ledger struct {
	presenceRepo repository.PresenceRepository
	memberRepo   repository.MemberRepository
	now          func() time.Time
}

// NewLedger はLedgerの新しいインスタンスを生成する。
func NewLedger(presenceRepo repository.PresenceRepository, memberRepo repository.MemberRepository) *Ledger {
	return &Ledger{
		presenceRepo: presenceRepo,
		memberRepo:   memberRepo,
		now:          time.Now,
	}
}

// CheckIn は部員をチェックインし、開始済みの在室セッションを返す。
// 既にチェックイン済みの場合は既存セッションの開始時刻を含むエラーを返す。
func (l *Ledger) CheckIn(ctx context.Context, memberID string) (*model.ActiveSession, error) {
	member, err := l.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("部員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(memberID)
	}

	session := &model.ActiveSession{
		MemberID:  memberID,
		StartedAt: l.now(),
	}

	err = l.presenceRepo.InsertActive(ctx, session)
	if errors.Is(err, repository.ErrDuplicateKey) {
		// 競合相手が先に挿入した。既存セッションの開始時刻を引いてエラーに含める。
		existing, findErr := l.presenceRepo.FindActive(ctx, memberID)
		if findErr != nil {
			return nil, fmt.Errorf("在室セッションの取得に失敗しました: %w", findErr)
		}
		startedAt := session.StartedAt
		if existing != nil {
			startedAt = existing.StartedAt
		}
		return nil, model.NewAlreadyCheckedInError(startedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("チェックインに失敗しました: %w", err)
	}

	return session, nil
}

// CheckOut は部員をチェックアウトし、確定した履歴レコードを返す。
// チェックインしていない場合はエラーを返す。
func (l *Ledger) CheckOut(ctx context.Context, memberID string, closedBy model.ClosedBy) (*model.ClosedSession, error) {
	closed, err := l.presenceRepo.CloseActive(ctx, memberID, uuid.NewString(), l.now(), closedBy)
	if err != nil {
		return nil, fmt.Errorf("チェックアウトに失敗しました: %w", err)
	}
	if closed == nil {
		return nil, model.NewNotCheckedInError()
	}
	return closed, nil
}

// ForceCheckOut は管理者が指定部員を強制的にチェックアウトさせる。
// 対象のセッションは履歴にforced=true、closed_by=adminで記録される。
func (l *Ledger) ForceCheckOut(ctx context.Context, memberID string) (*model.ClosedSession, error) {
	member, err := l.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("部員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(memberID)
	}
	return l.CheckOut(ctx, memberID, model.ClosedByAdmin)
}

// Status は部員の現在の在室状態を返す。在室していない場合はnilを返す。
func (l *Ledger) Status(ctx context.Context, memberID string) (*model.ActiveSession, error) {
	session, err := l.presenceRepo.FindActive(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("在室セッションの取得に失敗しました: %w", err)
	}
	return session, nil
}

// CountActive は現在の在室者数を返す。
func (l *Ledger) CountActive(ctx context.Context) (int, error) {
	count, err := l.presenceRepo.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("在室者数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ListActive は在室者一覧を返す。
func (l *Ledger) ListActive(ctx context.Context) ([]*model.ActiveSession, error) {
	sessions, err := l.presenceRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("在室者一覧の取得に失敗しました: %w", err)
	}
	return sessions, nil
}

// CloseAll は全在室セッションを指定主体で終了し、終了させた件数を返す。
// 個々のセッションの終了失敗は記録して続行する。
// 一覧取得後にセルフチェックアウトしたセッションは(nil, nil)となり、件数に含めない。
func (l *Ledger) CloseAll(ctx context.Context, closedBy model.ClosedBy) (int, error) {
	sessions, err := l.presenceRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("在室者一覧の取得に失敗しました: %w", err)
	}

	closedCount := 0
	for _, session := range sessions {
		closed, err := l.presenceRepo.CloseActive(ctx, session.MemberID, uuid.NewString(), l.now(), closedBy)
		if err != nil {
			slog.Error("在室セッションの強制終了に失敗しました",
				slog.String("member_id", session.MemberID),
				slog.String("error", err.Error()))
			continue
		}
		if closed == nil {
			continue
		}
		closedCount++
	}

	return closedCount, nil
}

// HistoryReader は在室履歴の参照サービス。
type HistoryReader struct {
	presenceRepo repository.PresenceRepository
	memberRepo   repository.MemberRepository
}

// NewHistoryReader はHistoryReaderの新しいインスタンスを生成する。
func NewHistoryReader(presenceRepo repository.PresenceRepository, memberRepo repository.MemberRepository) *HistoryReader {
	return &HistoryReader{
		presenceRepo: presenceRepo,
		memberRepo:   memberRepo,
	}
}

// Summary は部員の在室履歴の集計（回数と合計時間）を返す。
func (h *HistoryReader) Summary(ctx context.Context, memberID string) (*model.PresenceSummary, error) {
	member, err := h.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("部員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(memberID)
	}

	summary, err := h.presenceRepo.SummaryByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("在室履歴の集計に失敗しました: %w", err)
	}
	return summary, nil
}

// History は部員の終了済みセッションを開始時刻の新しい順で返す。
// limitが0以下の場合は全件を返す。
func (h *HistoryReader) History(ctx context.Context, memberID string, limit int) ([]*model.ClosedSession, error) {
	member, err := h.memberRepo.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("部員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(memberID)
	}

	sessions, err := h.presenceRepo.ListHistoryByMember(ctx, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("在室履歴の取得に失敗しました: %w", err)
	}
	return sessions, nil
}
