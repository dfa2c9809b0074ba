package announcement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/security"
)

// --- モック ---

type mockAnnouncementRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.Announcement, error)
	createFn     func(ctx context.Context, a *model.Announcement) error
	updateFn     func(ctx context.Context, a *model.Announcement) error
	deleteByIDFn func(ctx context.Context, id string) (bool, error)
	listFn       func(ctx context.Context) ([]*model.Announcement, error)
}

func (m *mockAnnouncementRepo) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockAnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	return nil
}
func (m *mockAnnouncementRepo) Update(ctx context.Context, a *model.Announcement) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, a)
	}
	return nil
}
func (m *mockAnnouncementRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return false, nil
}
func (m *mockAnnouncementRepo) List(ctx context.Context) ([]*model.Announcement, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// --- テスト ---

// TestService_Create はお知らせ作成と本文サニタイズを検証する。
func TestService_Create(t *testing.T) {
	var saved *model.Announcement
	repo := &mockAnnouncementRepo{
		createFn: func(ctx context.Context, a *model.Announcement) error {
			saved = a
			return nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer())
	svc.now = func() time.Time { return time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC) }

	a, err := svc.Create(context.Background(), CreateInput{
		Title:    "来週の清掃活動について",
		Body:     `<p>集合は8時です。</p><script>alert('xss')</script>`,
		AuthorID: "123456",
		Pinned:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if strings.Contains(saved.Body, "<script") {
		t.Errorf("body must be sanitized, got %q", saved.Body)
	}
	if !strings.Contains(saved.Body, "集合は8時です。") {
		t.Errorf("allowed content must survive, got %q", saved.Body)
	}
	if !saved.Pinned {
		t.Error("expected pinned announcement")
	}
}

// TestService_Update は更新時のサニタイズと未検出エラーを検証する。
func TestService_Update(t *testing.T) {
	repo := &mockAnnouncementRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Announcement, error) {
			return &model.Announcement{ID: id, Title: "旧タイトル"}, nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer())

	a, err := svc.Update(context.Background(), "ann-1", UpdateInput{
		Title: "新タイトル",
		Body:  `<p>更新</p><iframe src="https://evil.example"></iframe>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "新タイトル" {
		t.Errorf("expected title update, got %s", a.Title)
	}
	if strings.Contains(a.Body, "iframe") {
		t.Errorf("iframe must be removed, got %q", a.Body)
	}
}

// TestService_Update_NotFound は存在しないお知らせの更新エラーを検証する。
func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(&mockAnnouncementRepo{}, security.NewContentSanitizer())

	_, err := svc.Update(context.Background(), "missing", UpdateInput{Title: "x"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAnnouncementNotFound {
		t.Fatalf("expected ANNOUNCEMENT_NOT_FOUND, got %v", err)
	}
}

// TestService_Delete は削除と未検出エラーを検証する。
func TestService_Delete(t *testing.T) {
	repo := &mockAnnouncementRepo{
		deleteByIDFn: func(ctx context.Context, id string) (bool, error) {
			return id == "ann-1", nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer())

	if err := svc.Delete(context.Background(), "ann-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := svc.Delete(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAnnouncementNotFound {
		t.Fatalf("expected ANNOUNCEMENT_NOT_FOUND, got %v", err)
	}
}

// TestService_List は一覧取得を検証する。
func TestService_List(t *testing.T) {
	repo := &mockAnnouncementRepo{
		listFn: func(ctx context.Context) ([]*model.Announcement, error) {
			return []*model.Announcement{
				{ID: "ann-1", Pinned: true},
				{ID: "ann-2"},
			}, nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer())

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 announcements, got %d", len(list))
	}
}
