package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clubdesk/internal/model"
)

// PostgresAnnouncementRepo はPostgreSQLを使用したお知らせリポジトリ。
type PostgresAnnouncementRepo struct {
	db *sql.DB
}

// NewPostgresAnnouncementRepo はPostgresAnnouncementRepoを生成する。
func NewPostgresAnnouncementRepo(db *sql.DB) *PostgresAnnouncementRepo {
	return &PostgresAnnouncementRepo{db: db}
}

// FindByID は指定IDのお知らせを取得する。見つからない場合はnilを返す。
func (r *PostgresAnnouncementRepo) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	a := &model.Announcement{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, body, author_id, pinned, created_at, updated_at
		 FROM announcements WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &a.Pinned, &a.CreatedAt, &a.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find announcement: %w", err)
	}

	return a, nil
}

// Create はお知らせを作成する。
func (r *PostgresAnnouncementRepo) Create(ctx context.Context, a *model.Announcement) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO announcements (id, title, body, author_id, pinned, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Title, a.Body, a.AuthorID, a.Pinned, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert announcement: %w", err)
	}
	return nil
}

// Update はお知らせを更新する。
func (r *PostgresAnnouncementRepo) Update(ctx context.Context, a *model.Announcement) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE announcements SET title = $2, body = $3, pinned = $4, updated_at = $5
		 WHERE id = $1`,
		a.ID, a.Title, a.Body, a.Pinned, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのお知らせを削除する。削除した場合はtrueを返す。
func (r *PostgresAnnouncementRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM announcements WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete announcement: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List は全お知らせをピン留め優先・作成日時の新しい順で返す。
func (r *PostgresAnnouncementRepo) List(ctx context.Context) ([]*model.Announcement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, body, author_id, pinned, created_at, updated_at
		 FROM announcements ORDER BY pinned DESC, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	var announcements []*model.Announcement
	for rows.Next() {
		a := &model.Announcement{}
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &a.Pinned, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate announcements: %w", err)
	}

	return announcements, nil
}

// compile-time interface check
var _ AnnouncementRepository = (*PostgresAnnouncementRepo)(nil)
