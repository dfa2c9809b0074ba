package ride

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/repository"
)

// --- モック ---

type mockRideRepo struct {
	createRequestFn           func(ctx context.Context, r *model.RideRequest) error
	createOfferFn             func(ctx context.Context, o *model.RideOffer) error
	findRequestByIDFn         func(ctx context.Context, id string) (*model.RideRequest, error)
	findOfferByIDFn           func(ctx context.Context, id string) (*model.RideOffer, error)
	listOpenRequestsByEventFn func(ctx context.Context, eventID string) ([]*model.RideRequest, error)
	listOpenOffersByEventFn   func(ctx context.Context, eventID string) ([]*model.RideOffer, error)
	createMatchFn             func(ctx context.Context, m *model.RideMatch) error
	listMatchesByEventFn      func(ctx context.Context, eventID string) ([]*model.RideMatch, error)
}

func (m *mockRideRepo) CreateRequest(ctx context.Context, r *model.RideRequest) error {
	if m.createRequestFn != nil {
		return m.createRequestFn(ctx, r)
	}
	return nil
}
func (m *mockRideRepo) CreateOffer(ctx context.Context, o *model.RideOffer) error {
	if m.createOfferFn != nil {
		return m.createOfferFn(ctx, o)
	}
	return nil
}
func (m *mockRideRepo) FindRequestByID(ctx context.Context, id string) (*model.RideRequest, error) {
	if m.findRequestByIDFn != nil {
		return m.findRequestByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockRideRepo) FindOfferByID(ctx context.Context, id string) (*model.RideOffer, error) {
	if m.findOfferByIDFn != nil {
		return m.findOfferByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockRideRepo) ListOpenRequestsByEvent(ctx context.Context, eventID string) ([]*model.RideRequest, error) {
	if m.listOpenRequestsByEventFn != nil {
		return m.listOpenRequestsByEventFn(ctx, eventID)
	}
	return nil, nil
}
func (m *mockRideRepo) ListOpenOffersByEvent(ctx context.Context, eventID string) ([]*model.RideOffer, error) {
	if m.listOpenOffersByEventFn != nil {
		return m.listOpenOffersByEventFn(ctx, eventID)
	}
	return nil, nil
}
func (m *mockRideRepo) CreateMatch(ctx context.Context, match *model.RideMatch) error {
	if m.createMatchFn != nil {
		return m.createMatchFn(ctx, match)
	}
	return nil
}
func (m *mockRideRepo) ListMatchesByEvent(ctx context.Context, eventID string) ([]*model.RideMatch, error) {
	if m.listMatchesByEventFn != nil {
		return m.listMatchesByEventFn(ctx, eventID)
	}
	return nil, nil
}

type mockEventFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Event, error)
}

func (m *mockEventFinder) FindByID(ctx context.Context, id string) (*model.Event, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Event{ID: id, Title: "公園清掃"}, nil
}

func openRequest(id, eventID, memberID string, createdAt time.Time) *model.RideRequest {
	return &model.RideRequest{
		ID:        id,
		EventID:   eventID,
		MemberID:  memberID,
		Status:    model.RideStatusOpen,
		CreatedAt: createdAt,
	}
}

func openOffer(id, eventID, memberID string, seats, taken int) *model.RideOffer {
	return &model.RideOffer{
		ID:         id,
		EventID:    eventID,
		MemberID:   memberID,
		Seats:      seats,
		SeatsTaken: taken,
		Status:     model.RideStatusOpen,
	}
}

// --- テスト ---

// TestService_RequestRide は送迎リクエストの登録を検証する。
func TestService_RequestRide(t *testing.T) {
	var saved *model.RideRequest
	repo := &mockRideRepo{
		createRequestFn: func(ctx context.Context, r *model.RideRequest) error {
			saved = r
			return nil
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	req, err := svc.RequestRide(context.Background(), RequestInput{
		EventID:  "ev-1",
		MemberID: "123456",
		Note:     "駅前で拾ってください",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != model.RideStatusOpen {
		t.Errorf("expected open status, got %s", req.Status)
	}
	if saved == nil {
		t.Fatal("expected request to be persisted")
	}
}

// TestService_RequestRide_Duplicate は同一イベントへの重複リクエスト拒否を検証する。
func TestService_RequestRide_Duplicate(t *testing.T) {
	repo := &mockRideRepo{
		createRequestFn: func(ctx context.Context, r *model.RideRequest) error {
			return fmt.Errorf("request exists: %w", repository.ErrDuplicateKey)
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	_, err := svc.RequestRide(context.Background(), RequestInput{EventID: "ev-1", MemberID: "123456"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateRide {
		t.Fatalf("expected DUPLICATE_RIDE, got %v", err)
	}
}

// TestService_RequestRide_EventNotFound は存在しないイベントへのリクエスト拒否を検証する。
func TestService_RequestRide_EventNotFound(t *testing.T) {
	finder := &mockEventFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Event, error) {
			return nil, nil
		},
	}
	svc := NewService(&mockRideRepo{}, finder)

	_, err := svc.RequestRide(context.Background(), RequestInput{EventID: "missing", MemberID: "123456"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventNotFound {
		t.Fatalf("expected EVENT_NOT_FOUND, got %v", err)
	}
}

// TestService_OfferRide_InvalidSeats は座席数0以下のオファー拒否を検証する。
func TestService_OfferRide_InvalidSeats(t *testing.T) {
	svc := NewService(&mockRideRepo{}, &mockEventFinder{})

	_, err := svc.OfferRide(context.Background(), OfferInput{
		EventID:  "ev-1",
		MemberID: "123456",
		Seats:    0,
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNoSeatsLeft {
		t.Fatalf("expected NO_SEATS_LEFT, got %v", err)
	}
}

// TestService_ListCandidates は先着順の候補ペアリングを検証する。
// 座席数2のオファーは2件のリクエストと組み、3件目は次のオファーに回る。
func TestService_ListCandidates(t *testing.T) {
	base := time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC)
	repo := &mockRideRepo{
		listOpenRequestsByEventFn: func(ctx context.Context, eventID string) ([]*model.RideRequest, error) {
			return []*model.RideRequest{
				openRequest("req-1", eventID, "111111", base),
				openRequest("req-2", eventID, "222222", base.Add(time.Minute)),
				openRequest("req-3", eventID, "333333", base.Add(2*time.Minute)),
			}, nil
		},
		listOpenOffersByEventFn: func(ctx context.Context, eventID string) ([]*model.RideOffer, error) {
			return []*model.RideOffer{
				openOffer("off-1", eventID, "444444", 2, 0),
				openOffer("off-2", eventID, "555555", 3, 0),
			}, nil
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	candidates, err := svc.ListCandidates(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].Offer.ID != "off-1" || candidates[1].Offer.ID != "off-1" {
		t.Errorf("first two requests should pair with off-1")
	}
	if candidates[2].Offer.ID != "off-2" {
		t.Errorf("third request should pair with off-2, got %s", candidates[2].Offer.ID)
	}
	if candidates[0].Request.ID != "req-1" {
		t.Errorf("expected FIFO request order, got %s", candidates[0].Request.ID)
	}
}

// TestService_ListCandidates_MoreRequestsThanSeats は座席不足時の打ち切りを検証する。
func TestService_ListCandidates_MoreRequestsThanSeats(t *testing.T) {
	base := time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC)
	repo := &mockRideRepo{
		listOpenRequestsByEventFn: func(ctx context.Context, eventID string) ([]*model.RideRequest, error) {
			return []*model.RideRequest{
				openRequest("req-1", eventID, "111111", base),
				openRequest("req-2", eventID, "222222", base.Add(time.Minute)),
			}, nil
		},
		listOpenOffersByEventFn: func(ctx context.Context, eventID string) ([]*model.RideOffer, error) {
			return []*model.RideOffer{
				openOffer("off-1", eventID, "444444", 2, 1), // 残り1席
			}, nil
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	candidates, err := svc.ListCandidates(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Request.ID != "req-1" {
		t.Errorf("expected earliest request to win the seat, got %s", candidates[0].Request.ID)
	}
}

// TestService_ConfirmMatch はマッチ確定の基本動作を検証する。
func TestService_ConfirmMatch(t *testing.T) {
	var savedMatch *model.RideMatch
	repo := &mockRideRepo{
		findRequestByIDFn: func(ctx context.Context, id string) (*model.RideRequest, error) {
			return openRequest(id, "ev-1", "111111", time.Now()), nil
		},
		findOfferByIDFn: func(ctx context.Context, id string) (*model.RideOffer, error) {
			return openOffer(id, "ev-1", "444444", 3, 1), nil
		},
		createMatchFn: func(ctx context.Context, m *model.RideMatch) error {
			savedMatch = m
			return nil
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	match, err := svc.ConfirmMatch(context.Background(), "req-1", "off-1", "999999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.EventID != "ev-1" {
		t.Errorf("expected event ev-1, got %s", match.EventID)
	}
	if match.ConfirmedBy != "999999" {
		t.Errorf("expected confirmed_by 999999, got %s", match.ConfirmedBy)
	}
	if savedMatch == nil {
		t.Fatal("expected match to be persisted")
	}
}

// TestService_ConfirmMatch_DifferentEvents は異なるイベント間のマッチ拒否を検証する。
func TestService_ConfirmMatch_DifferentEvents(t *testing.T) {
	repo := &mockRideRepo{
		findRequestByIDFn: func(ctx context.Context, id string) (*model.RideRequest, error) {
			return openRequest(id, "ev-1", "111111", time.Now()), nil
		},
		findOfferByIDFn: func(ctx context.Context, id string) (*model.RideOffer, error) {
			return openOffer(id, "ev-2", "444444", 3, 0), nil
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	_, err := svc.ConfirmMatch(context.Background(), "req-1", "off-1", "999999")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRideNotOpen {
		t.Fatalf("expected RIDE_NOT_OPEN, got %v", err)
	}
}

// TestService_ConfirmMatch_NoSeatsLeft は満席オファーへのマッチ拒否を検証する。
func TestService_ConfirmMatch_NoSeatsLeft(t *testing.T) {
	repo := &mockRideRepo{
		findRequestByIDFn: func(ctx context.Context, id string) (*model.RideRequest, error) {
			return openRequest(id, "ev-1", "111111", time.Now()), nil
		},
		findOfferByIDFn: func(ctx context.Context, id string) (*model.RideOffer, error) {
			return openOffer(id, "ev-1", "2", 2, 0), nil
		},
	}
	repo.findOfferByIDFn = func(ctx context.Context, id string) (*model.RideOffer, error) {
		return openOffer(id, "ev-1", "444444", 2, 2), nil
	}
	svc := NewService(repo, &mockEventFinder{})

	_, err := svc.ConfirmMatch(context.Background(), "req-1", "off-1", "999999")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNoSeatsLeft {
		t.Fatalf("expected NO_SEATS_LEFT, got %v", err)
	}
}

// TestService_ConfirmMatch_SeatLostToRace は確定時の座席競合を検証する。
// 事前確認では空席があったが、確定トランザクションで座席が取られていた場合。
func TestService_ConfirmMatch_SeatLostToRace(t *testing.T) {
	repo := &mockRideRepo{
		findRequestByIDFn: func(ctx context.Context, id string) (*model.RideRequest, error) {
			return openRequest(id, "ev-1", "111111", time.Now()), nil
		},
		findOfferByIDFn: func(ctx context.Context, id string) (*model.RideOffer, error) {
			return openOffer(id, "ev-1", "444444", 2, 1), nil
		},
		createMatchFn: func(ctx context.Context, m *model.RideMatch) error {
			return fmt.Errorf("no seat left: %w", repository.ErrConflict)
		},
	}
	svc := NewService(repo, &mockEventFinder{})

	_, err := svc.ConfirmMatch(context.Background(), "req-1", "off-1", "999999")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNoSeatsLeft {
		t.Fatalf("expected NO_SEATS_LEFT, got %v", err)
	}
}

// TestService_ConfirmMatch_RequestNotFound は存在しないリクエストへのマッチ拒否を検証する。
func TestService_ConfirmMatch_RequestNotFound(t *testing.T) {
	svc := NewService(&mockRideRepo{}, &mockEventFinder{})

	_, err := svc.ConfirmMatch(context.Background(), "missing", "off-1", "999999")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeRideNotFound {
		t.Fatalf("expected RIDE_NOT_FOUND, got %v", err)
	}
}
