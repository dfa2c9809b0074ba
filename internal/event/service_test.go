package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
	"github.com/hitoshi/clubdesk/internal/security"
)

// --- モック ---

type mockEventRepo struct {
	findByIDFn            func(ctx context.Context, id string) (*model.Event, error)
	createFn              func(ctx context.Context, e *model.Event) error
	updateFn              func(ctx context.Context, e *model.Event) error
	deleteByIDFn          func(ctx context.Context, id string) (bool, error)
	listUpcomingFn        func(ctx context.Context, from time.Time) ([]*model.Event, error)
	createSignupFn        func(ctx context.Context, s *model.Signup) error
	deleteSignupFn        func(ctx context.Context, eventID, memberID string) (bool, error)
	countSignupsFn        func(ctx context.Context, eventID string) (int, error)
	listSignupsByMemberFn func(ctx context.Context, memberID string) ([]*model.Signup, error)
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockEventRepo) Create(ctx context.Context, e *model.Event) error {
	if m.createFn != nil {
		return m.createFn(ctx, e)
	}
	return nil
}
func (m *mockEventRepo) Update(ctx context.Context, e *model.Event) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, e)
	}
	return nil
}
func (m *mockEventRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return false, nil
}
func (m *mockEventRepo) ListUpcoming(ctx context.Context, from time.Time) ([]*model.Event, error) {
	if m.listUpcomingFn != nil {
		return m.listUpcomingFn(ctx, from)
	}
	return nil, nil
}
func (m *mockEventRepo) CreateSignup(ctx context.Context, s *model.Signup) error {
	if m.createSignupFn != nil {
		return m.createSignupFn(ctx, s)
	}
	return nil
}
func (m *mockEventRepo) DeleteSignup(ctx context.Context, eventID, memberID string) (bool, error) {
	if m.deleteSignupFn != nil {
		return m.deleteSignupFn(ctx, eventID, memberID)
	}
	return false, nil
}
func (m *mockEventRepo) CountSignups(ctx context.Context, eventID string) (int, error) {
	if m.countSignupsFn != nil {
		return m.countSignupsFn(ctx, eventID)
	}
	return 0, nil
}
func (m *mockEventRepo) ListSignupsByMember(ctx context.Context, memberID string) ([]*model.Signup, error) {
	if m.listSignupsByMemberFn != nil {
		return m.listSignupsByMemberFn(ctx, memberID)
	}
	return nil, nil
}

func newTestService(repo repository.EventRepository) *Service {
	return NewService(repo, security.NewContentSanitizer())
}

func sampleEvent(id string, capacity int) *model.Event {
	return &model.Event{
		ID:       id,
		Title:    "公園清掃",
		Capacity: capacity,
		StartsAt: time.Date(2026, 4, 11, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 4, 11, 12, 0, 0, 0, time.UTC),
	}
}

// --- テスト ---

// TestService_Create はイベント作成と説明文サニタイズを検証する。
func TestService_Create(t *testing.T) {
	var saved *model.Event
	repo := &mockEventRepo{
		createFn: func(ctx context.Context, e *model.Event) error {
			saved = e
			return nil
		},
	}
	svc := newTestService(repo)

	e, err := svc.Create(context.Background(), CreateInput{
		Title:       "公園清掃",
		Description: `<p>軍手持参</p><script>bad()</script>`,
		Location:    "中央公園",
		Capacity:    20,
		CreatedBy:   "123456",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == "" {
		t.Error("expected ID to be assigned")
	}
	if strings.Contains(saved.Description, "<script") {
		t.Errorf("description must be sanitized, got %q", saved.Description)
	}
}

// TestService_SignUp は参加申込の基本動作を検証する。
func TestService_SignUp(t *testing.T) {
	var saved *model.Signup
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return sampleEvent(id, 20), nil
		},
		countSignupsFn: func(ctx context.Context, eventID string) (int, error) {
			return 5, nil
		},
		createSignupFn: func(ctx context.Context, s *model.Signup) error {
			saved = s
			return nil
		},
	}
	svc := newTestService(repo)

	signup, err := svc.SignUp(context.Background(), "ev-1", "123456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signup.EventID != "ev-1" || signup.MemberID != "123456" {
		t.Errorf("unexpected signup: %+v", signup)
	}
	if saved == nil {
		t.Fatal("expected signup to be persisted")
	}
}

// TestService_SignUp_EventFull は定員超過の申込拒否を検証する。
func TestService_SignUp_EventFull(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return sampleEvent(id, 10), nil
		},
		countSignupsFn: func(ctx context.Context, eventID string) (int, error) {
			return 10, nil
		},
	}
	svc := newTestService(repo)

	_, err := svc.SignUp(context.Background(), "ev-1", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventFull {
		t.Fatalf("expected EVENT_FULL, got %v", err)
	}
}

// TestService_SignUp_LosesCapacityRace は事前確認を通過した後に
// リポジトリの定員判定で弾かれた場合もEVENT_FULLになることを検証する。
func TestService_SignUp_LosesCapacityRace(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return sampleEvent(id, 10), nil
		},
		countSignupsFn: func(ctx context.Context, eventID string) (int, error) {
			return 9, nil // 事前確認では空きが1つ見える
		},
		createSignupFn: func(ctx context.Context, s *model.Signup) error {
			// 同時申込が先に最後の枠を取った
			return fmt.Errorf("event %s is full: %w", s.EventID, repository.ErrConflict)
		},
	}
	svc := newTestService(repo)

	_, err := svc.SignUp(context.Background(), "ev-1", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventFull {
		t.Fatalf("expected EVENT_FULL, got %v", err)
	}
}

// TestService_SignUp_NoCapacityLimit は定員0（無制限）のイベント申込を検証する。
func TestService_SignUp_NoCapacityLimit(t *testing.T) {
	countCalled := false
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return sampleEvent(id, 0), nil
		},
		countSignupsFn: func(ctx context.Context, eventID string) (int, error) {
			countCalled = true
			return 1000, nil
		},
	}
	svc := newTestService(repo)

	if _, err := svc.SignUp(context.Background(), "ev-1", "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countCalled {
		t.Error("capacity check must be skipped when capacity is 0")
	}
}

// TestService_SignUp_Duplicate は重複申込の拒否を検証する。
func TestService_SignUp_Duplicate(t *testing.T) {
	repo := &mockEventRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return sampleEvent(id, 0), nil
		},
		createSignupFn: func(ctx context.Context, s *model.Signup) error {
			return fmt.Errorf("signup exists: %w", repository.ErrDuplicateKey)
		},
	}
	svc := newTestService(repo)

	_, err := svc.SignUp(context.Background(), "ev-1", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateSignup {
		t.Fatalf("expected DUPLICATE_SIGNUP, got %v", err)
	}
}

// TestService_SignUp_EventNotFound は存在しないイベントへの申込拒否を検証する。
func TestService_SignUp_EventNotFound(t *testing.T) {
	svc := newTestService(&mockEventRepo{})

	_, err := svc.SignUp(context.Background(), "missing", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventNotFound {
		t.Fatalf("expected EVENT_NOT_FOUND, got %v", err)
	}
}

// TestService_CancelSignup は申込取消と未検出エラーを検証する。
func TestService_CancelSignup(t *testing.T) {
	repo := &mockEventRepo{
		deleteSignupFn: func(ctx context.Context, eventID, memberID string) (bool, error) {
			return eventID == "ev-1", nil
		},
	}
	svc := newTestService(repo)

	if err := svc.CancelSignup(context.Background(), "ev-1", "123456"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := svc.CancelSignup(context.Background(), "ev-2", "123456")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSignupNotFound {
		t.Fatalf("expected SIGNUP_NOT_FOUND, got %v", err)
	}
}

// TestService_ListUpcoming は現在時刻が基準として渡ることを検証する。
func TestService_ListUpcoming(t *testing.T) {
	now := time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC)
	repo := &mockEventRepo{
		listUpcomingFn: func(ctx context.Context, from time.Time) ([]*model.Event, error) {
			if !from.Equal(now) {
				t.Errorf("expected from %v, got %v", now, from)
			}
			return []*model.Event{sampleEvent("ev-1", 0)}, nil
		},
	}
	svc := newTestService(repo)
	svc.now = func() time.Time { return now }

	events, err := svc.ListUpcoming(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

// TestService_Delete はイベント削除と未検出エラーを検証する。
func TestService_Delete(t *testing.T) {
	repo := &mockEventRepo{
		deleteByIDFn: func(ctx context.Context, id string) (bool, error) {
			return id == "ev-1", nil
		},
	}
	svc := newTestService(repo)

	if err := svc.Delete(context.Background(), "ev-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := svc.Delete(context.Background(), "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventNotFound {
		t.Fatalf("expected EVENT_NOT_FOUND, got %v", err)
	}
}
