package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/clubdesk/internal/middleware"
	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/ride"
)

// RideServiceInterface は送迎ハンドラーが必要とするサービスインターフェース。
type RideServiceInterface interface {
	RequestRide(ctx context.Context, input ride.RequestInput) (*model.RideRequest, error)
	OfferRide(ctx context.Context, input ride.OfferInput) (*model.RideOffer, error)
	ListCandidates(ctx context.Context, eventID string) ([]*model.RideCandidate, error)
	ConfirmMatch(ctx context.Context, requestID, offerID, confirmedBy string) (*model.RideMatch, error)
	ListMatches(ctx context.Context, eventID string) ([]*model.RideMatch, error)
}

// RideHandler は送迎マッチングのHTTPハンドラー。
type RideHandler struct {
	service RideServiceInterface
}

// NewRideHandler はRideHandlerを生成する。
func NewRideHandler(service RideServiceInterface) *RideHandler {
	return &RideHandler{service: service}
}

// rideRequestBody は送迎リクエスト登録のボディ。
type rideRequestBody struct {
	Note string `json:"note"`
}

// rideOfferBody は送迎オファー登録のボディ。
type rideOfferBody struct {
	Seats int    `json:"seats"`
	Note  string `json:"note"`
}

// confirmMatchBody はマッチ確定のボディ。
type confirmMatchBody struct {
	RequestID string `json:"request_id"`
	OfferID   string `json:"offer_id"`
}

// rideRequestResponse は送迎リクエストのAPIレスポンス。
type rideRequestResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	MemberID  string    `json:"member_id"`
	Note      string    `json:"note"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// rideOfferResponse は送迎オファーのAPIレスポンス。
type rideOfferResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	MemberID  string    `json:"member_id"`
	Seats     int       `json:"seats"`
	SeatsLeft int       `json:"seats_left"`
	Note      string    `json:"note"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// rideCandidateResponse はマッチング候補ペアのAPIレスポンス。
type rideCandidateResponse struct {
	EventID string              `json:"event_id"`
	Request rideRequestResponse `json:"request"`
	Offer   rideOfferResponse   `json:"offer"`
}

// rideMatchResponse は確定済みマッチのAPIレスポンス。
type rideMatchResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	RequestID   string    `json:"request_id"`
	OfferID     string    `json:"offer_id"`
	ConfirmedBy string    `json:"confirmed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// RequestRide は送迎リクエストの登録を処理する。
// POST /api/events/{id}/rides/requests
func (h *RideHandler) RequestRide(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	var req rideRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	request, err := h.service.RequestRide(r.Context(), ride.RequestInput{
		EventID:  eventID,
		MemberID: memberID,
		Note:     req.Note,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRideRequestResponse(request))
}

// OfferRide は送迎オファーの登録を処理する。
// POST /api/events/{id}/rides/offers
func (h *RideHandler) OfferRide(w http.ResponseWriter, r *http.Request) {
	memberID, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	var req rideOfferBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	offer, err := h.service.OfferRide(r.Context(), ride.OfferInput{
		EventID:  eventID,
		MemberID: memberID,
		Seats:    req.Seats,
		Note:     req.Note,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRideOfferResponse(offer))
}

// ListCandidates はマッチング候補ペアを返す。管理者専用。
// GET /api/events/{id}/rides/candidates
func (h *RideHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	candidates, err := h.service.ListCandidates(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]rideCandidateResponse, len(candidates))
	for i, c := range candidates {
		results[i] = rideCandidateResponse{
			EventID: c.EventID,
			Request: toRideRequestResponse(&c.Request),
			Offer:   toRideOfferResponse(&c.Offer),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": results,
	})
}

// ConfirmMatch はリクエストとオファーの組み合わせを確定する。管理者専用。
// POST /api/events/{id}/rides/matches
func (h *RideHandler) ConfirmMatch(w http.ResponseWriter, r *http.Request) {
	confirmedBy, err := middleware.MemberIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req confirmMatchBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.RequestID == "" || req.OfferID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "request_idとoffer_idは必須です。",
			Category: "validation",
			Action:   "入力内容を確認してください。",
		})
		return
	}

	match, err := h.service.ConfirmMatch(r.Context(), req.RequestID, req.OfferID, confirmedBy)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRideMatchResponse(match))
}

// ListMatches はイベントの確定済みマッチ一覧を返す。
// GET /api/events/{id}/rides/matches
func (h *RideHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	matches, err := h.service.ListMatches(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]rideMatchResponse, len(matches))
	for i, m := range matches {
		results[i] = toRideMatchResponse(m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"matches": results,
	})
}

// toRideRequestResponse はmodel.RideRequestからAPIレスポンスに変換する。
func toRideRequestResponse(r *model.RideRequest) rideRequestResponse {
	return rideRequestResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		MemberID:  r.MemberID,
		Note:      r.Note,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

// toRideOfferResponse はmodel.RideOfferからAPIレスポンスに変換する。
func toRideOfferResponse(o *model.RideOffer) rideOfferResponse {
	return rideOfferResponse{
		ID:        o.ID,
		EventID:   o.EventID,
		MemberID:  o.MemberID,
		Seats:     o.Seats,
		SeatsLeft: o.SeatsLeft(),
		Note:      o.Note,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

// toRideMatchResponse はmodel.RideMatchからAPIレスポンスに変換する。
func toRideMatchResponse(m *model.RideMatch) rideMatchResponse {
	return rideMatchResponse{
		ID:          m.ID,
		EventID:     m.EventID,
		RequestID:   m.RequestID,
		OfferID:     m.OfferID,
		ConfirmedBy: m.ConfirmedBy,
		CreatedAt:   m.CreatedAt,
	}
}
