package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// PostgresServiceLogRepo はPostgreSQLを使用した奉仕活動報告リポジトリ。
type PostgresServiceLogRepo struct {
	db *sql.DB
}

// NewPostgresServiceLogRepo はPostgresServiceLogRepoを生成する。
func NewPostgresServiceLogRepo(db *sql.DB) *PostgresServiceLogRepo {
	return &PostgresServiceLogRepo{db: db}
}

const serviceLogColumns = `id, member_id, month, description, hours, status,
	reviewed_by, review_note, reviewed_at, created_at, updated_at`

func scanServiceLog(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.ServiceLog, error) {
	l := &model.ServiceLog{}
	var status string
	err := scanner.Scan(&l.ID, &l.MemberID, &l.Month, &l.Description, &l.Hours, &status,
		&l.ReviewedBy, &l.ReviewNote, &l.ReviewedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = model.ReviewStatus(status)
	return l, nil
}

// FindByID は指定IDの活動報告を取得する。見つからない場合はnilを返す。
func (r *PostgresServiceLogRepo) FindByID(ctx context.Context, id string) (*model.ServiceLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+serviceLogColumns+` FROM service_logs WHERE id = $1`,
		id,
	)
	l, err := scanServiceLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find service log: %w", err)
	}
	return l, nil
}

// Create は活動報告を作成する。
// UNIQUE(member_id, month)に違反した場合はErrDuplicateKeyをラップしたエラーを返す。
func (r *PostgresServiceLogRepo) Create(ctx context.Context, l *model.ServiceLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO service_logs (id, member_id, month, description, hours, status,
		        reviewed_by, review_note, reviewed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		l.ID, l.MemberID, l.Month, l.Description, l.Hours, string(l.Status),
		l.ReviewedBy, l.ReviewNote, l.ReviewedAt, l.CreatedAt, l.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("service log exists for member %s month %s: %w", l.MemberID, l.Month, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert service log: %w", err)
	}
	return nil
}

// ListByMember は部員の活動報告を月の新しい順で返す。
func (r *PostgresServiceLogRepo) ListByMember(ctx context.Context, memberID string) ([]*model.ServiceLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+serviceLogColumns+` FROM service_logs WHERE member_id = $1 ORDER BY month DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list service logs: %w", err)
	}
	defer rows.Close()

	return collectServiceLogs(rows)
}

// ListByStatus は指定状態の活動報告を提出日時の古い順で返す。
func (r *PostgresServiceLogRepo) ListByStatus(ctx context.Context, status model.ReviewStatus) ([]*model.ServiceLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+serviceLogColumns+` FROM service_logs WHERE status = $1 ORDER BY created_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list service logs by status: %w", err)
	}
	defer rows.Close()

	return collectServiceLogs(rows)
}

func collectServiceLogs(rows *sql.Rows) ([]*model.ServiceLog, error) {
	var logs []*model.ServiceLog
	for rows.Next() {
		l, err := scanServiceLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate service logs: %w", err)
	}
	return logs, nil
}

// UpdateReview はレビュー結果を記録する。
func (r *PostgresServiceLogRepo) UpdateReview(ctx context.Context, id string, status model.ReviewStatus, reviewedBy, note string, reviewedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE service_logs SET status = $2, reviewed_by = $3, review_note = $4,
		        reviewed_at = $5, updated_at = $5
		 WHERE id = $1`,
		id, string(status), reviewedBy, note, reviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update service log review: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ServiceLogRepository = (*PostgresServiceLogRepo)(nil)
