// Package project は個人奉仕プロジェクト申請のドメインロジックを提供する。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
)

// SubmitInput はプロジェクト申請の入力。
type SubmitInput struct {
	MemberID     string
	Title        string
	Description  string
	PlannedHours float64
}

// ReviewInput はレビューの入力。
type ReviewInput struct {
	Status     model.ReviewStatus
	ReviewedBy string
	Note       string
}

// Service は個人奉仕プロジェクトのサービス層。
type Service struct {
	repo repository.ProjectRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ProjectRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Submit はプロジェクト申請を提出する。状態はレビュー待ちとして登録される。
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*model.Project, error) {
	if input.PlannedHours <= 0 {
		return nil, model.NewInvalidHoursError(input.PlannedHours)
	}

	now := s.now()
	p := &model.Project{
		ID:           uuid.NewString(),
		MemberID:     input.MemberID,
		Title:        input.Title,
		Description:  input.Description,
		PlannedHours: input.PlannedHours,
		Status:       model.ReviewStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("プロジェクト申請の提出に失敗しました: %w", err)
	}

	slog.Info("プロジェクト申請が提出されました",
		slog.String("project_id", p.ID),
		slog.String("member_id", p.MemberID),
	)

	return p, nil
}

// ListMine は部員自身のプロジェクトを作成日時の新しい順で返す。
func (s *Service) ListMine(ctx context.Context, memberID string) ([]*model.Project, error) {
	projects, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// ListPending はレビュー待ちのプロジェクトを提出日時の古い順で返す。管理者向け。
func (s *Service) ListPending(ctx context.Context) ([]*model.Project, error) {
	projects, err := s.repo.ListByStatus(ctx, model.ReviewStatusPending)
	if err != nil {
		return nil, fmt.Errorf("レビュー待ちプロジェクトの取得に失敗しました: %w", err)
	}
	return projects, nil
}

// Review はプロジェクト申請の承認または差し戻しを記録する。
// レビュー済みの申請を再度レビューすることはできない。
func (s *Service) Review(ctx context.Context, id string, input ReviewInput) (*model.Project, error) {
	if input.Status != model.ReviewStatusApproved && input.Status != model.ReviewStatusRejected {
		return nil, model.NewInvalidReviewError(string(input.Status))
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	if p.Status != model.ReviewStatusPending {
		return nil, model.NewAlreadyReviewedError()
	}

	reviewedAt := s.now()
	if err := s.repo.UpdateReview(ctx, id, input.Status, input.ReviewedBy, input.Note, reviewedAt); err != nil {
		return nil, fmt.Errorf("レビューの記録に失敗しました: %w", err)
	}

	p.Status = input.Status
	p.ReviewedBy = input.ReviewedBy
	p.ReviewNote = input.Note
	p.ReviewedAt = &reviewedAt
	p.UpdatedAt = reviewedAt

	slog.Info("プロジェクト申請をレビューしました",
		slog.String("project_id", id),
		slog.String("status", string(input.Status)),
		slog.String("reviewed_by", input.ReviewedBy),
	)

	return p, nil
}
