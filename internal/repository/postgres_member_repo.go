package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/clubdesk/internal/model"
)

// PostgresMemberRepo はPostgreSQLを使用した部員リポジトリ。
type PostgresMemberRepo struct {
	db *sql.DB
}

// NewPostgresMemberRepo はPostgresMemberRepoを生成する。
func NewPostgresMemberRepo(db *sql.DB) *PostgresMemberRepo {
	return &PostgresMemberRepo{db: db}
}

// FindByID は指定部員番号の部員を取得する。見つからない場合はnilを返す。
func (r *PostgresMemberRepo) FindByID(ctx context.Context, memberID string) (*model.Member, error) {
	member := &model.Member{}
	err := r.db.QueryRowContext(ctx,
		`SELECT member_id, name, email, password_hash, role, grade, created_at, updated_at
		 FROM members WHERE member_id = $1`,
		memberID,
	).Scan(&member.MemberID, &member.Name, &member.Email, &member.PasswordHash,
		&member.Role, &member.Grade, &member.CreatedAt, &member.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find member by ID: %w", err)
	}

	return member, nil
}

// FindByEmail はメールアドレスで部員を検索する。見つからない場合はnilを返す。
func (r *PostgresMemberRepo) FindByEmail(ctx context.Context, email string) (*model.Member, error) {
	member := &model.Member{}
	err := r.db.QueryRowContext(ctx,
		`SELECT member_id, name, email, password_hash, role, grade, created_at, updated_at
		 FROM members WHERE email = $1`,
		email,
	).Scan(&member.MemberID, &member.Name, &member.Email, &member.PasswordHash,
		&member.Role, &member.Grade, &member.CreatedAt, &member.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find member by email: %w", err)
	}

	return member, nil
}

// Create は部員を作成する。部員番号またはメールアドレスが重複する場合は
// ErrDuplicateKeyをラップしたエラーを返す。
func (r *PostgresMemberRepo) Create(ctx context.Context, member *model.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (member_id, name, email, password_hash, role, grade, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		member.MemberID, member.Name, member.Email, member.PasswordHash,
		string(member.Role), member.Grade, member.CreatedAt, member.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("member %s already exists: %w", member.MemberID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// List は全部員を部員番号昇順で返す。
func (r *PostgresMemberRepo) List(ctx context.Context) ([]*model.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id, name, email, password_hash, role, grade, created_at, updated_at
		 FROM members ORDER BY member_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		m := &model.Member{}
		if err := rows.Scan(&m.MemberID, &m.Name, &m.Email, &m.PasswordHash,
			&m.Role, &m.Grade, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// compile-time interface check
var _ MemberRepository = (*PostgresMemberRepo)(nil)
