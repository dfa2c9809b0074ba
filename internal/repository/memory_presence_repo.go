package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// MemoryPresenceRepo はインメモリの在室セッションリポジトリ。
// テストおよびDBなしのローカル起動用。プロセスごとに明示的に生成し、
// グローバル状態は持たない。全操作をミューテックスで直列化することで
// 同一部員に対するチェックイン・チェックアウトの線形化可能性を保証する。
type MemoryPresenceRepo struct {
	mu      sync.Mutex
	active  map[string]*model.ActiveSession
	history []*model.ClosedSession
}

// NewMemoryPresenceRepo はMemoryPresenceRepoを生成する。
func NewMemoryPresenceRepo() *MemoryPresenceRepo {
	return &MemoryPresenceRepo{
		active: make(map[string]*model.ActiveSession),
	}
}

// InsertActive は在室セッションを作成する。
// 同一部員の在室セッションが既に存在する場合はErrDuplicateKeyをラップしたエラーを返す。
func (r *MemoryPresenceRepo) InsertActive(ctx context.Context, session *model.ActiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[session.MemberID]; exists {
		return fmt.Errorf("active session exists for member %s: %w", session.MemberID, ErrDuplicateKey)
	}

	copied := *session
	r.active[session.MemberID] = &copied
	return nil
}

// FindActive は指定部員の在室セッションを取得する。見つからない場合はnilを返す。
func (r *MemoryPresenceRepo) FindActive(ctx context.Context, memberID string) (*model.ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.active[memberID]
	if !exists {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

// CountActive は現在の在室セッション数を返す。
func (r *MemoryPresenceRepo) CountActive(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active), nil
}

// ListActive は在室セッション一覧を開始時刻の新しい順で返す。
func (r *MemoryPresenceRepo) ListActive(ctx context.Context) ([]*model.ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*model.ActiveSession, 0, len(r.active))
	for _, s := range r.active {
		copied := *s
		sessions = append(sessions, &copied)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.After(sessions[j].StartedAt)
		}
		return sessions[i].MemberID < sessions[j].MemberID
	})

	return sessions, nil
}

// CloseActive は在室セッションを終了し履歴レコードを生成する。
// ミューテックス保持中に削除と追記の両方を行うため、中間状態は観測されない。
// 在室セッションが存在しない場合は(nil, nil)を返す。
func (r *MemoryPresenceRepo) CloseActive(ctx context.Context, memberID, historyID string, endedAt time.Time, closedBy model.ClosedBy) (*model.ClosedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.active[memberID]
	if !exists {
		return nil, nil
	}

	closed := model.NewClosedSession(historyID, memberID, session.StartedAt, endedAt, closedBy)
	delete(r.active, memberID)
	r.history = append(r.history, closed)

	copied := *closed
	return &copied, nil
}

// SummaryByMember は指定部員の終了済みセッションの件数と合計時間を返す。
func (r *MemoryPresenceRepo) SummaryByMember(ctx context.Context, memberID string) (*model.PresenceSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &model.PresenceSummary{MemberID: memberID}
	for _, s := range r.history {
		if s.MemberID != memberID {
			continue
		}
		summary.SessionCount++
		summary.TotalDuration += s.Duration
	}
	return summary, nil
}

// ListHistoryByMember は指定部員の終了済みセッションを開始時刻の新しい順で返す。
func (r *MemoryPresenceRepo) ListHistoryByMember(ctx context.Context, memberID string, limit int) ([]*model.ClosedSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sessions []*model.ClosedSession
	for _, s := range r.history {
		if s.MemberID != memberID {
			continue
		}
		copied := *s
		sessions = append(sessions, &copied)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

// compile-time interface check
var _ PresenceRepository = (*MemoryPresenceRepo)(nil)
