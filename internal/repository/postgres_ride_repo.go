package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clubdesk/internal/model"
)

// PostgresRideRepo はPostgreSQLを使用した送迎マッチングリポジトリ。
// ride_requests・ride_offers・ride_matchesの3テーブルを所有する。
type PostgresRideRepo struct {
	db *sql.DB
}

// NewPostgresRideRepo はPostgresRideRepoを生成する。
func NewPostgresRideRepo(db *sql.DB) *PostgresRideRepo {
	return &PostgresRideRepo{db: db}
}

// CreateRequest は送迎リクエストを作成する。
// UNIQUE(event_id, member_id)に違反した場合はErrDuplicateKeyをラップしたエラーを返す。
func (r *PostgresRideRepo) CreateRequest(ctx context.Context, req *model.RideRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ride_requests (id, event_id, member_id, note, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.EventID, req.MemberID, req.Note, string(req.Status), req.CreatedAt, req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("ride request exists for event %s member %s: %w", req.EventID, req.MemberID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert ride request: %w", err)
	}
	return nil
}

// CreateOffer は送迎オファーを作成する。
// UNIQUE(event_id, member_id)に違反した場合はErrDuplicateKeyをラップしたエラーを返す。
func (r *PostgresRideRepo) CreateOffer(ctx context.Context, o *model.RideOffer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ride_offers (id, event_id, member_id, seats, seats_taken, note, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.EventID, o.MemberID, o.Seats, o.SeatsTaken, o.Note, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("ride offer exists for event %s member %s: %w", o.EventID, o.MemberID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert ride offer: %w", err)
	}
	return nil
}

// FindRequestByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresRideRepo) FindRequestByID(ctx context.Context, id string) (*model.RideRequest, error) {
	req := &model.RideRequest{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, member_id, note, status, created_at, updated_at
		 FROM ride_requests WHERE id = $1`,
		id,
	).Scan(&req.ID, &req.EventID, &req.MemberID, &req.Note, &status, &req.CreatedAt, &req.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ride request: %w", err)
	}

	req.Status = model.RideStatus(status)
	return req, nil
}

// FindOfferByID は指定IDのオファーを取得する。見つからない場合はnilを返す。
func (r *PostgresRideRepo) FindOfferByID(ctx context.Context, id string) (*model.RideOffer, error) {
	o := &model.RideOffer{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, member_id, seats, seats_taken, note, status, created_at, updated_at
		 FROM ride_offers WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.EventID, &o.MemberID, &o.Seats, &o.SeatsTaken, &o.Note, &status, &o.CreatedAt, &o.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ride offer: %w", err)
	}

	o.Status = model.RideStatus(status)
	return o, nil
}

// ListOpenRequestsByEvent はイベントのマッチング待ちリクエストを作成日時の古い順で返す。
func (r *PostgresRideRepo) ListOpenRequestsByEvent(ctx context.Context, eventID string) ([]*model.RideRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, member_id, note, status, created_at, updated_at
		 FROM ride_requests WHERE event_id = $1 AND status = $2 ORDER BY created_at`,
		eventID, string(model.RideStatusOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open ride requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.RideRequest
	for rows.Next() {
		req := &model.RideRequest{}
		var status string
		if err := rows.Scan(&req.ID, &req.EventID, &req.MemberID, &req.Note, &status,
			&req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ride request: %w", err)
		}
		req.Status = model.RideStatus(status)
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ride requests: %w", err)
	}

	return requests, nil
}

// ListOpenOffersByEvent はイベントの空き座席があるオファーを作成日時の古い順で返す。
func (r *PostgresRideRepo) ListOpenOffersByEvent(ctx context.Context, eventID string) ([]*model.RideOffer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, member_id, seats, seats_taken, note, status, created_at, updated_at
		 FROM ride_offers
		 WHERE event_id = $1 AND status = $2 AND seats_taken < seats
		 ORDER BY created_at`,
		eventID, string(model.RideStatusOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open ride offers: %w", err)
	}
	defer rows.Close()

	var offers []*model.RideOffer
	for rows.Next() {
		o := &model.RideOffer{}
		var status string
		if err := rows.Scan(&o.ID, &o.EventID, &o.MemberID, &o.Seats, &o.SeatsTaken, &o.Note, &status,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ride offer: %w", err)
		}
		o.Status = model.RideStatus(status)
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ride offers: %w", err)
	}

	return offers, nil
}

// CreateMatch はマッチを確定する。
// マッチの挿入・リクエストの状態更新・オファーの座席消費を同一トランザクションで行い、
// 座席の二重消費はUPDATE時のseats_taken < seats条件で防止する。
func (r *PostgresRideRepo) CreateMatch(ctx context.Context, m *model.RideMatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE ride_offers SET seats_taken = seats_taken + 1, updated_at = now()
		 WHERE id = $1 AND status = $2 AND seats_taken < seats`,
		m.OfferID, string(model.RideStatusOpen),
	)
	if err != nil {
		return fmt.Errorf("failed to consume offer seat: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no seat left on offer %s: %w", m.OfferID, ErrConflict)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE ride_requests SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		m.RequestID, string(model.RideStatusMatched), string(model.RideStatusOpen),
	)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("request %s is not open: %w", m.RequestID, ErrConflict)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ride_matches (id, event_id, request_id, offer_id, confirmed_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.EventID, m.RequestID, m.OfferID, m.ConfirmedBy, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("match exists for request %s: %w", m.RequestID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert ride match: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListMatchesByEvent はイベントの確定済みマッチを作成日時の古い順で返す。
func (r *PostgresRideRepo) ListMatchesByEvent(ctx context.Context, eventID string) ([]*model.RideMatch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, request_id, offer_id, confirmed_by, created_at
		 FROM ride_matches WHERE event_id = $1 ORDER BY created_at`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ride matches: %w", err)
	}
	defer rows.Close()

	var matches []*model.RideMatch
	for rows.Next() {
		m := &model.RideMatch{}
		if err := rows.Scan(&m.ID, &m.EventID, &m.RequestID, &m.OfferID, &m.ConfirmedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ride match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ride matches: %w", err)
	}

	return matches, nil
}

// compile-time interface check
var _ RideRepository = (*PostgresRideRepo)(nil)
