// Package event はボランティアイベントと参加申込のドメインロジックを提供する。
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
	"github.com/hitoshi/clubdesk/internal/security"
)

// CreateInput はイベント作成の入力。
type CreateInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	CreatedBy   string
}

// UpdateInput はイベント更新の入力。
type UpdateInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
}

// Service はイベント管理のサービス層。
// 申込の重複防止と定員の最終判定はリポジトリのトランザクションに委ねる。
// サービス層の定員チェックは満員のイベントを挿入前に弾くための事前確認。
type Service struct {
	repo      repository.EventRepository
	sanitizer security.ContentSanitizerService
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.EventRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create はイベントを作成する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Event, error) {
	now := s.now()
	e := &model.Event{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: s.sanitizer.Sanitize(input.Description),
		Location:    input.Location,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
		Capacity:    input.Capacity,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	slog.Info("イベントを作成しました",
		slog.String("event_id", e.ID),
		slog.String("title", e.Title),
	)

	return e, nil
}

// Update はイベントを更新する。
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*model.Event, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewEventNotFoundError(id)
	}

	e.Title = input.Title
	e.Description = s.sanitizer.Sanitize(input.Description)
	e.Location = input.Location
	e.StartsAt = input.StartsAt
	e.EndsAt = input.EndsAt
	e.Capacity = input.Capacity
	e.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	return e, nil
}

// Delete はイベントを削除する。申込も連動して削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewEventNotFoundError(id)
	}
	return nil
}

// Get は指定IDのイベントを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewEventNotFoundError(id)
	}
	return e, nil
}

// ListUpcoming は開始時刻が現在以降のイベントを開始時刻昇順で返す。
func (s *Service) ListUpcoming(ctx context.Context) ([]*model.Event, error) {
	events, err := s.repo.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// SignUp はイベントに参加申込する。
// 定員に達している場合、および同一イベントへの重複申込はエラーを返す。
func (s *Service) SignUp(ctx context.Context, eventID, memberID string) (*model.Signup, error) {
	e, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	if e.Capacity > 0 {
		count, err := s.repo.CountSignups(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("申込数の取得に失敗しました: %w", err)
		}
		if count >= e.Capacity {
			return nil, model.NewEventFullError()
		}
	}

	signup := &model.Signup{
		ID:        uuid.NewString(),
		EventID:   eventID,
		MemberID:  memberID,
		CreatedAt: s.now(),
	}

	err = s.repo.CreateSignup(ctx, signup)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, model.NewDuplicateSignupError()
	}
	// 事前確認をすり抜けた同時申込はリポジトリ側の定員判定で弾かれる
	if errors.Is(err, repository.ErrConflict) {
		return nil, model.NewEventFullError()
	}
	if err != nil {
		return nil, fmt.Errorf("申込の作成に失敗しました: %w", err)
	}

	return signup, nil
}

// CancelSignup は申込を取り消す。
func (s *Service) CancelSignup(ctx context.Context, eventID, memberID string) error {
	deleted, err := s.repo.DeleteSignup(ctx, eventID, memberID)
	if err != nil {
		return fmt.Errorf("申込の取消に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewSignupNotFoundError()
	}
	return nil
}

// MySignups は部員の申込一覧を返す。
func (s *Service) MySignups(ctx context.Context, memberID string) ([]*model.Signup, error) {
	signups, err := s.repo.ListSignupsByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("申込一覧の取得に失敗しました: %w", err)
	}
	return signups, nil
}
