// Package ride はイベントへの送迎マッチングのドメインロジックを提供する。
package ride

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

// RequestInput は送迎リクエストの入力。
type RequestInput struct {
	EventID  string
	MemberID string
	Note     string
}

// OfferInput は送迎オファーの入力。
type OfferInput struct {
	EventID  string
	MemberID string
	Seats    int
	Note     string
}

// EventFinder はイベントの存在確認インターフェース。
type EventFinder interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
}

// Service は送迎マッチングのサービス層。
// 候補の組み合わせは同一イベント内のリクエストとオファーを先着順で提案する。
// マッチの確定時の座席消費はリポジトリのトランザクションに委ねる。
type Service struct {
	rideRepo    repository.RideRepository
	eventFinder EventFinder
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(rideRepo repository.RideRepository, eventFinder EventFinder) *Service {
	return &Service{
		rideRepo:    rideRepo,
		eventFinder: eventFinder,
		now:         time.Now,
	}
}

// RequestRide はイベントへの送迎リクエストを登録する。
func (s *Service) RequestRide(ctx context.Context, input RequestInput) (*model.RideRequest, error) {
	if err := s.ensureEvent(ctx, input.EventID); err != nil {
		return nil, err
	}

	now := s.now()
	req := &model.RideRequest{
		ID:        uuid.NewString(),
		EventID:   input.EventID,
		MemberID:  input.MemberID,
		Note:      input.Note,
		Status:    model.RideStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.rideRepo.CreateRequest(ctx, req)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, model.NewDuplicateRideError()
	}
	if err != nil {
		return nil, fmt.Errorf("送迎リクエストの登録に失敗しました: %w", err)
	}

	return req, nil
}

// OfferRide はイベントへの送迎オファーを登録する。座席数は1以上でなければならない。
func (s *Service) OfferRide(ctx context.Context, input OfferInput) (*model.RideOffer, error) {
	if input.Seats <= 0 {
		return nil, model.NewNoSeatsLeftError()
	}
	if err := s.ensureEvent(ctx, input.EventID); err != nil {
		return nil, err
	}

	now := s.now()
	offer := &model.RideOffer{
		ID:        uuid.NewString(),
		EventID:   input.EventID,
		MemberID:  input.MemberID,
		Seats:     input.Seats,
		Note:      input.Note,
		Status:    model.RideStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.rideRepo.CreateOffer(ctx, offer)
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, model.NewDuplicateRideError()
	}
	if err != nil {
		return nil, fmt.Errorf("送迎オファーの登録に失敗しました: %w", err)
	}

	return offer, nil
}

// ListCandidates は同一イベント内のマッチング候補ペアを先着順で返す。
// 各オファーは残り座席数まで複数のリクエストと組み合わせられる。
func (s *Service) ListCandidates(ctx context.Context, eventID string) ([]*model.RideCandidate, error) {
	if err := s.ensureEvent(ctx, eventID); err != nil {
		return nil, err
	}

	requests, err := s.rideRepo.ListOpenRequestsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("送迎リクエストの取得に失敗しました: %w", err)
	}
	offers, err := s.rideRepo.ListOpenOffersByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("送迎オファーの取得に失敗しました: %w", err)
	}

	var candidates []*model.RideCandidate
	offerIdx := 0
	seatsUsed := 0
	for _, req := range requests {
		// 残り座席のあるオファーを先頭から消費する
		for offerIdx < len(offers) && offers[offerIdx].SeatsLeft()-seatsUsed <= 0 {
			offerIdx++
			seatsUsed = 0
		}
		if offerIdx >= len(offers) {
			break
		}
		candidates = append(candidates, &model.RideCandidate{
			EventID: eventID,
			Request: *req,
			Offer:   *offers[offerIdx],
		})
		seatsUsed++
	}

	return candidates, nil
}

// ConfirmMatch は管理者がリクエストとオファーの組み合わせを確定する。
// 両者が同一イベントでマッチング待ち状態であり、オファーに空き座席があることを要求する。
func (s *Service) ConfirmMatch(ctx context.Context, requestID, offerID, confirmedBy string) (*model.RideMatch, error) {
	req, err := s.rideRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("送迎リクエストの取得に失敗しました: %w", err)
	}
	if req == nil {
		return nil, model.NewRideNotFoundError(requestID)
	}

	offer, err := s.rideRepo.FindOfferByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("送迎オファーの取得に失敗しました: %w", err)
	}
	if offer == nil {
		return nil, model.NewRideNotFoundError(offerID)
	}

	if req.EventID != offer.EventID {
		return nil, model.NewRideNotOpenError()
	}
	if req.Status != model.RideStatusOpen || offer.Status != model.RideStatusOpen {
		return nil, model.NewRideNotOpenError()
	}
	if offer.SeatsLeft() <= 0 {
		return nil, model.NewNoSeatsLeftError()
	}

	match := &model.RideMatch{
		ID:          uuid.NewString(),
		EventID:     req.EventID,
		RequestID:   requestID,
		OfferID:     offerID,
		ConfirmedBy: confirmedBy,
		CreatedAt:   s.now(),
	}

	err = s.rideRepo.CreateMatch(ctx, match)
	if errors.Is(err, repository.ErrConflict) {
		// 事前確認と確定の間に座席が消費されたか、リクエストが確定済みになった
		return nil, model.NewNoSeatsLeftError()
	}
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, model.NewRideNotOpenError()
	}
	if err != nil {
		return nil, fmt.Errorf("マッチの確定に失敗しました: %w", err)
	}

	slog.Info("送迎マッチを確定しました",
		slog.String("match_id", match.ID),
		slog.String("request_id", requestID),
		slog.String("offer_id", offerID),
		slog.String("confirmed_by", confirmedBy),
	)

	return match, nil
}

// ListMatches はイベントの確定済みマッチを返す。
func (s *Service) ListMatches(ctx context.Context, eventID string) ([]*model.RideMatch, error) {
	matches, err := s.rideRepo.ListMatchesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("マッチ一覧の取得に失敗しました: %w", err)
	}
	return matches, nil
}

func (s *Service) ensureEvent(ctx context.Context, eventID string) error {
	e, err := s.eventFinder.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if e == nil {
		return model.NewEventNotFoundError(eventID)
	}
	return nil
}
