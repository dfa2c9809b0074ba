package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用した個人奉仕プロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, member_id, title, description, planned_hours, status,
	reviewed_by, review_note, reviewed_at, created_at, updated_at`

func scanProject(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Project, error) {
	p := &model.Project{}
	var status string
	err := scanner.Scan(&p.ID, &p.MemberID, &p.Title, &p.Description, &p.PlannedHours, &status,
		&p.ReviewedBy, &p.ReviewNote, &p.ReviewedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.ReviewStatus(status)
	return p, nil
}

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *PostgresProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`,
		id,
	)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return p, nil
}

// Create はプロジェクト申請を作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, p *model.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, member_id, title, description, planned_hours, status,
		        reviewed_by, review_note, reviewed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.MemberID, p.Title, p.Description, p.PlannedHours, string(p.Status),
		p.ReviewedBy, p.ReviewNote, p.ReviewedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// ListByMember は部員のプロジェクトを作成日時の新しい順で返す。
func (r *PostgresProjectRepo) ListByMember(ctx context.Context, memberID string) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE member_id = $1 ORDER BY created_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

// ListByStatus は指定状態のプロジェクトを提出日時の古い順で返す。
func (r *PostgresProjectRepo) ListByStatus(ctx context.Context, status model.ReviewStatus) ([]*model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE status = $1 ORDER BY created_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by status: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

func collectProjects(rows *sql.Rows) ([]*model.Project, error) {
	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// UpdateReview はレビュー結果を記録する。
func (r *PostgresProjectRepo) UpdateReview(ctx context.Context, id string, status model.ReviewStatus, reviewedBy, note string, reviewedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET status = $2, reviewed_by = $3, review_note = $4,
		        reviewed_at = $5, updated_at = $5
		 WHERE id = $1`,
		id, string(status), reviewedBy, note, reviewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update project review: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)
