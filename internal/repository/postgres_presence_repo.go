package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/clubdesk/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反（unique_violation）のエラーコード。
const uniqueViolation = "23505"

// isUniqueViolation は一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresPresenceRepo はPostgreSQLを使用した在室セッションリポジトリ。
// active_sessions（member_idにUNIQUE制約）とsession_history（追記専用）を所有する。
type PostgresPresenceRepo struct {
	db *sql.DB
}

// NewPostgresPresenceRepo はPostgresPresenceRepoを生成する。
func NewPostgresPresenceRepo(db *sql.DB) *PostgresPresenceRepo {
	return &PostgresPresenceRepo{db: db}
}

// InsertActive は在室セッションを作成する。
// member_idのUNIQUE制約に違反した場合はErrDuplicateKeyをラップしたエラーを返す。
// 同時チェックインが競合しても、挿入に成功するのは常に一方のみ。
func (r *PostgresPresenceRepo) InsertActive(ctx context.Context, session *model.ActiveSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO active_sessions (member_id, started_at) VALUES ($1, $2)`,
		session.MemberID, session.StartedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("active session exists for member %s: %w", session.MemberID, ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("failed to insert active session: %w", err)
	}
	return nil
}

// FindActive は指定部員の在室セッションを取得する。見つからない場合はnilを返す。
func (r *PostgresPresenceRepo) FindActive(ctx context.Context, memberID string) (*model.ActiveSession, error) {
	session := &model.ActiveSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT member_id, started_at FROM active_sessions WHERE member_id = $1`,
		memberID,
	).Scan(&session.MemberID, &session.StartedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active session: %w", err)
	}

	return session, nil
}

// CountActive は現在の在室セッション数を返す。
func (r *PostgresPresenceRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM active_sessions`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

// ListActive は在室セッション一覧を開始時刻の新しい順で返す。
func (r *PostgresPresenceRepo) ListActive(ctx context.Context) ([]*model.ActiveSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_id, started_at FROM active_sessions ORDER BY started_at DESC, member_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.ActiveSession
	for rows.Next() {
		s := &model.ActiveSession{}
		if err := rows.Scan(&s.MemberID, &s.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan active session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active sessions: %w", err)
	}

	return sessions, nil
}

// CloseActive は在室セッションを終了し履歴レコードを生成する。
// DELETE ... RETURNINGで在室レコードを取り除き、同一トランザクション内で
// 履歴を追記することで「履歴は追記されたが在室が残っている」状態（またはその逆）が
// 後続の観測者から見えないことを保証する。
// 在室セッションが存在しない場合は(nil, nil)を返す。
func (r *PostgresPresenceRepo) CloseActive(ctx context.Context, memberID, historyID string, endedAt time.Time, closedBy model.ClosedBy) (*model.ClosedSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var startedAt time.Time
	err = tx.QueryRowContext(ctx,
		`DELETE FROM active_sessions WHERE member_id = $1 RETURNING started_at`,
		memberID,
	).Scan(&startedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete active session: %w", err)
	}

	closed := model.NewClosedSession(historyID, memberID, startedAt, endedAt, closedBy)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO session_history (id, member_id, started_at, ended_at, duration_ms, forced, closed_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		closed.ID, closed.MemberID, closed.StartedAt, closed.EndedAt,
		closed.Duration.Milliseconds(), closed.Forced, string(closed.ClosedBy),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return closed, nil
}

// SummaryByMember は指定部員の終了済みセッションの件数と合計時間を返す。
// 履歴がない場合はゼロ値を返す。NULLのdurationは0として扱う。
func (r *PostgresPresenceRepo) SummaryByMember(ctx context.Context, memberID string) (*model.PresenceSummary, error) {
	summary := &model.PresenceSummary{MemberID: memberID}

	var totalMs int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), coalesce(sum(duration_ms), 0)
		 FROM session_history WHERE member_id = $1`,
		memberID,
	).Scan(&summary.SessionCount, &totalMs)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize session history: %w", err)
	}

	summary.TotalDuration = time.Duration(totalMs) * time.Millisecond
	return summary, nil
}

// ListHistoryByMember は指定部員の終了済みセッションを開始時刻の新しい順で返す。
// limitが0以下の場合は全件を返す。
func (r *PostgresPresenceRepo) ListHistoryByMember(ctx context.Context, memberID string, limit int) ([]*model.ClosedSession, error) {
	query := `SELECT id, member_id, started_at, ended_at, duration_ms, forced, closed_by
	          FROM session_history WHERE member_id = $1 ORDER BY started_at DESC`
	args := []interface{}{memberID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}
	defer rows.Close()

	var sessions []*model.ClosedSession
	for rows.Next() {
		s := &model.ClosedSession{}
		var durationMs int64
		var closedBy string
		if err := rows.Scan(&s.ID, &s.MemberID, &s.StartedAt, &s.EndedAt, &durationMs, &s.Forced, &closedBy); err != nil {
			return nil, fmt.Errorf("failed to scan session history: %w", err)
		}
		s.Duration = time.Duration(durationMs) * time.Millisecond
		s.ClosedBy = model.ClosedBy(closedBy)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session history: %w", err)
	}

	return sessions, nil
}

// compile-time interface check
var _ PresenceRepository = (*PostgresPresenceRepo)(nil)
