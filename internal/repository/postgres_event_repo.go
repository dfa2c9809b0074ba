package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
// eventsとevent_signupsの両テーブルを所有する。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	e := &model.Event{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, location, starts_at, ends_at, capacity, created_by, created_at, updated_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}

	return e, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, e *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, location, starts_at, ends_at, capacity, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt,
		e.Capacity, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Update はイベントを更新する。
func (r *PostgresEventRepo) Update(ctx context.Context, e *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET title = $2, description = $3, location = $4, starts_at = $5,
		        ends_at = $6, capacity = $7, updated_at = $8
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt, e.Capacity, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのイベントを削除する。削除した場合はtrueを返す。
// 申込はON DELETE CASCADEにより連動して削除される。
func (r *PostgresEventRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListUpcoming は開始時刻がfrom以降のイベントを開始時刻昇順で返す。
func (r *PostgresEventRepo) ListUpcoming(ctx context.Context, from time.Time) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, location, starts_at, ends_at, capacity, created_by, created_at, updated_at
		 FROM events WHERE starts_at >= $1 ORDER BY starts_at`,
		from,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e := &model.Event{}
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// CreateSignup は申込を作成する。
// イベント行をロックして定員を確認し、挿入までを同一トランザクションで行うため、
// 同時申込が定員を超えることはない。定員0は無制限として扱う。
// 定員到達時はErrConflict、UNIQUE(event_id, member_id)違反時は
// ErrDuplicateKeyをラップしたエラーを返す。
func (r *PostgresEventRepo) CreateSignup(ctx context.Context, s *model.Signup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var capacity int
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		s.EventID,
	).Scan(&capacity)
	if err == sql.ErrNoRows {
		return fmt.Errorf("event %s not found for signup", s.EventID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock event: %w", err)
	}

	if capacity > 0 {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM event_signups WHERE event_id = $1`,
			s.EventID,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to count signups: %w", err)
		}
		if count >= capacity {
			return fmt.Errorf("event %s is full: %w", s.EventID, ErrConflict)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_signups (id, event_id, member_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		s.ID, s.EventID, s.MemberID, s.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("signup exists for event %s member %s: %w", s.EventID, s.MemberID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert signup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteSignup はイベントと部員の組で申込を削除する。削除した場合はtrueを返す。
func (r *PostgresEventRepo) DeleteSignup(ctx context.Context, eventID, memberID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM event_signups WHERE event_id = $1 AND member_id = $2`,
		eventID, memberID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete signup: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountSignups はイベントの申込数を返す。
func (r *PostgresEventRepo) CountSignups(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM event_signups WHERE event_id = $1`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count signups: %w", err)
	}
	return count, nil
}

// ListSignupsByMember は部員の申込一覧を作成日時の新しい順で返す。
func (r *PostgresEventRepo) ListSignupsByMember(ctx context.Context, memberID string) ([]*model.Signup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, member_id, created_at
		 FROM event_signups WHERE member_id = $1 ORDER BY created_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups: %w", err)
	}
	defer rows.Close()

	var signups []*model.Signup
	for rows.Next() {
		s := &model.Signup{}
		if err := rows.Scan(&s.ID, &s.EventID, &s.MemberID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signup: %w", err)
		}
		signups = append(signups, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate signups: %w", err)
	}

	return signups, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
