// Package announcement はお知らせ管理のドメインロジックを提供する。
package announcement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
	"github.com/hitoshi/clubdesk/internal/security"
)

// CreateInput はお知らせ作成の入力。
type CreateInput struct {
	Title    string
	Body     string
	AuthorID string
	Pinned   bool
}

// UpdateInput はお知らせ更新の入力。
type UpdateInput struct {
	Title  string
	Body   string
	Pinned bool
}

// Service はお知らせ管理のサービス層。
// 本文は保存前にサニタイズされる。
type Service struct {
	repo      repository.AnnouncementRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.AnnouncementRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create はお知らせを作成する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Announcement, error) {
	now := s.now()
	a := &model.Announcement{
		ID:        uuid.NewString(),
		Title:     input.Title,
		Body:      s.sanitizer.Sanitize(input.Body),
		AuthorID:  input.AuthorID,
		Pinned:    input.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("お知らせの作成に失敗しました: %w", err)
	}

	slog.Info("お知らせを作成しました",
		slog.String("announcement_id", a.ID),
		slog.String("author_id", a.AuthorID),
	)

	return a, nil
}

// Update はお知らせを更新する。
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*model.Announcement, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("お知らせの取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewAnnouncementNotFoundError(id)
	}

	a.Title = input.Title
	a.Body = s.sanitizer.Sanitize(input.Body)
	a.Pinned = input.Pinned
	a.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("お知らせの更新に失敗しました: %w", err)
	}

	return a, nil
}

// Delete はお知らせを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("お知らせの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewAnnouncementNotFoundError(id)
	}
	return nil
}

// Get は指定IDのお知らせを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Announcement, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("お知らせの取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewAnnouncementNotFoundError(id)
	}
	return a, nil
}

// List は全お知らせをピン留め優先・作成日時の新しい順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Announcement, error) {
	announcements, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("お知らせ一覧の取得に失敗しました: %w", err)
	}
	return announcements, nil
}
