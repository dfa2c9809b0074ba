// Package servicelog は月次の奉仕活動報告のドメインロジックを提供する。
package servicelog

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

// maxMonthlyHours は1か月あたりの活動時間の上限。
const maxMonthlyHours = 200.0

// SubmitInput は活動報告提出の入力。
type SubmitInput struct {
	MemberID    string
	Month       string // "2006-01"形式
	Description string
	Hours       float64
}

// ReviewInput はレビューの入力。
type ReviewInput struct {
	Status     model.ReviewStatus
	ReviewedBy string
	Note       string
}

// Service は奉仕活動報告のサービス層。
// 同一部員・同一月の重複提出はリポジトリの挿入一意性に委ねる。
type Service struct {
	repo repository.ServiceLogRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ServiceLogRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Submit は月次の活動報告を提出する。状態はレビュー待ちとして登録される。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*model.ServiceLog, error) {
	if _, err := time.Parse("2006-01", input.Month); err != nil {
		return nil, model.NewInvalidMonthError(input.Month)
	}
	if input.Hours <= 0 || input.Hours > maxMonthlyHours {
		return nil, model.NewInvalidHoursError(input.Hours)
	}

	now := s.now()
	log := &model.ServiceLog{
		ID:          uuid.NewString(),
		MemberID:    input.MemberID,
		Month:       input.Month,
		Description: input.Description,
		Hours:       input.Hours,
		Status:      model.ReviewStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.Create(ctx, log)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, model.NewDuplicateServiceLogError(input.Month)
	}
	if err != nil {
		return nil, fmt.Errorf("活動報告の提出に失敗しました: %w", err)
	}

	slog.Info("活動報告が提出されました",
		slog.String("log_id", log.ID),
		slog.String("member_id", log.MemberID),
		slog.String("month", log.Month),
	)

	return log, nil
}

// ListMine は部員自身の活動報告を月の新しい順で返す。
func (s *Service) ListMine(ctx context.Context, memberID string) ([]*model.ServiceLog, error) {
	logs, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("活動報告一覧の取得に失敗しました: %w", err)
	}
	return logs, nil
}

// ListPending はレビュー待ちの活動報告を提出日時の古い順で返す。管理者向け。
func (s *Service) ListPending(ctx context.Context) ([]*model.ServiceLog, error) {
	logs, err := s.repo.ListByStatus(ctx, model.ReviewStatusPending)
	if err != nil {
		return nil, fmt.Errorf("レビュー待ち報告の取得に失敗しました: %w", err)
	}
	return logs, nil
}

// Review は活動報告の承認または差し戻しを記録する。
// レビュー済みの報告を再度レビューすることはできない。
func (s *Service) Review(ctx context.Context, id string, input ReviewInput) (*model.ServiceLog, error) {
	if input.Status != model.ReviewStatusApproved && input.Status != model.ReviewStatusRejected {
		return nil, model.NewInvalidReviewError(string(input.Status))
	}

	log, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("活動報告の取得に失敗しました: %w", err)
	}
	if log == nil {
		return nil, model.NewServiceLogNotFoundError(id)
	}
	if log.Status != model.ReviewStatusPending {
		return nil, model.NewAlreadyReviewedError()
	}

	reviewedAt := s.now()
	if err := s.repo.UpdateReview(ctx, id, input.Status, input.ReviewedBy, input.Note, reviewedAt); err != nil {
		return nil, fmt.Errorf("レビューの記録に失敗しました: %w", err)
	}

	log.Status = input.Status
	log.ReviewedBy = input.ReviewedBy
	log.ReviewNote = input.Note
	log.ReviewedAt = &reviewedAt
	log.UpdatedAt = reviewedAt

	slog.Info("活動報告をレビューしました",
		slog.String("log_id", id),
		slog.String("status", string(input.Status)),
		slog.String("reviewed_by", input.ReviewedBy),
	)

	return log, nil
}
