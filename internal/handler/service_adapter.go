package handler

import (
	"context"

	"github.com/hitoshi/clubdesk/internal/announcement"
	"github.com/hitoshi/clubdesk/internal/auth"
	"github.com/hitoshi/clubdesk/internal/event"
	"github.com/hitoshi/clubdesk/internal/member"
	"github.com/hitoshi/clubdesk/internal/metrics"
	"github.com/hitoshi/clubdesk/internal/model"
	"github.com/hitoshi/clubdesk/internal/presence"
	"github.com/hitoshi/clubdesk/internal/project"
	"github.com/hitoshi/clubdesk/internal/ride"
	"github.com/hitoshi/clubdesk/internal/servicelog"
)

// InstrumentedLedger は presence.Ledger をメトリクス記録付きで
// PresenceServiceInterface に適合させるアダプタ。
// チェックイン・チェックアウトのカウンタと在室者数ゲージを更新する。
type InstrumentedLedger struct {
	ledger    *presence.Ledger
	collector metrics.MetricsCollector
}

// NewInstrumentedLedger はInstrumentedLedgerを生成する。
// collectorがnilの場合はメトリクスを記録せず委譲のみ行う。
func NewInstrumentedLedger(ledger *presence.Ledger, collector metrics.MetricsCollector) *InstrumentedLedger {
	return &InstrumentedLedger{
		ledger:    ledger,
		collector: collector,
	}
}

// CheckIn はチェックインを委譲し、成功時にメトリクスを記録する。
func (a *InstrumentedLedger) CheckIn(ctx context.Context, memberID string) (*model.ActiveSession, error) {
	session, err := a.ledger.CheckIn(ctx, memberID)
	if err != nil {
		return nil, err
	}
	a.recordActiveGauge(ctx)
	if a.collector != nil {
		a.collector.RecordCheckIn()
	}
	return session, nil
}

// CheckOut はチェックアウトを委譲し、成功時にメトリクスを記録する。
func (a *InstrumentedLedger) CheckOut(ctx context.Context, memberID string, closedBy model.ClosedBy) (*model.ClosedSession, error) {
	closed, err := a.ledger.CheckOut(ctx, memberID, closedBy)
	if err != nil {
		return nil, err
	}
	a.recordActiveGauge(ctx)
	if a.collector != nil {
		a.collector.RecordCheckOut(string(closedBy))
	}
	return closed, nil
}

// ForceCheckOut は強制チェックアウトを委譲し、成功時にメトリクスを記録する。
func (a *InstrumentedLedger) ForceCheckOut(ctx context.Context, memberID string) (*model.ClosedSession, error) {
	closed, err := a.ledger.ForceCheckOut(ctx, memberID)
	if err != nil {
		return nil, err
	}
	a.recordActiveGauge(ctx)
	if a.collector != nil {
		a.collector.RecordCheckOut(string(model.ClosedByAdmin))
	}
	return closed, nil
}

// Status は在室状態の取得を委譲する。
func (a *InstrumentedLedger) Status(ctx context.Context, memberID string) (*model.ActiveSession, error) {
	return a.ledger.Status(ctx, memberID)
}

// ListActive は在室者一覧の取得を委譲する。
func (a *InstrumentedLedger) ListActive(ctx context.Context) ([]*model.ActiveSession, error) {
	return a.ledger.ListActive(ctx)
}

// CloseAll は全セッション終了を委譲し、終了件数分のメトリクスを記録する。
func (a *InstrumentedLedger) CloseAll(ctx context.Context, closedBy model.ClosedBy) (int, error) {
	closedCount, err := a.ledger.CloseAll(ctx, closedBy)
	if err != nil {
		return 0, err
	}
	a.recordActiveGauge(ctx)
	if a.collector != nil {
		for i := 0; i < closedCount; i++ {
			a.collector.RecordCheckOut(string(closedBy))
		}
	}
	return closedCount, nil
}

// recordActiveGauge は現在の在室者数をゲージに反映する。
// 取得失敗はゲージの更新を見送るだけで、本処理の結果には影響させない。
func (a *InstrumentedLedger) recordActiveGauge(ctx context.Context) {
	if a.collector == nil {
		return
	}
	count, err := a.ledger.CountActive(ctx)
	if err != nil {
		return
	}
	a.collector.SetActiveSessions(count)
}

// --- compile-time interface checks ---

var _ PresenceServiceInterface = (*InstrumentedLedger)(nil)
var _ PresenceHistoryInterface = (*presence.HistoryReader)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)
var _ AnnouncementServiceInterface = (*announcement.Service)(nil)
var _ EventServiceInterface = (*event.Service)(nil)
var _ ServiceLogServiceInterface = (*servicelog.Service)(nil)
var _ ProjectServiceInterface = (*project.Service)(nil)
var _ RideServiceInterface = (*ride.Service)(nil)
var _ MemberServiceInterface = (*member.Service)(nil)
