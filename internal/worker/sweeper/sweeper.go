// Package sweeper は下校時刻に全在室セッションを強制終了するスケジュールスイープを提供する。
// 短い間隔のポーリングで現在時刻がスロット（"HH:MM"）に一致するかを判定し、
// 1スロットにつき1日1回だけスイープを実行する。
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/clubdesk/internal/metrics"
	"github.com/hitoshi/clubdesk/internal/model"
)

// SessionCloser は全在室セッションの一括終了インターフェース。
type SessionCloser interface {
	// CloseAll は全在室セッションを指定主体で終了し、終了させた件数を返す。
	CloseAll(ctx context.Context, closedBy model.ClosedBy) (int, error)
}

// Sweeper はスケジュールスイープの実行主体。
// ティッカー1周期ごとに現在時刻を確認するレベルトリガー方式のため、
// プロセスの再起動や一時停止があっても、スロット時刻を過ぎた直後の
// ポーリングで取りこぼしなく発火する。
type Sweeper struct {
	closer       SessionCloser
	logger       *slog.Logger
	collector    metrics.MetricsCollector
	slots        []string // "HH:MM"昇順
	location     *time.Location
	pollInterval time.Duration

	// lastFired は最後にスイープが成功したスロットの識別子（"2006-01-02 15:04"）。
	// 同一スロットでの二重発火を防ぐ。成功時のみ更新する。
	lastFired string

	now func() time.Time
}

// NewSweeper はSweeperの新しいインスタンスを生成する。
// pollIntervalが0以下の場合はデフォルト値30秒を使用する。
func NewSweeper(
	closer SessionCloser,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	slots []string,
	location *time.Location,
	pollInterval time.Duration,
) *Sweeper {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &Sweeper{
		closer:       closer,
		logger:       logger,
		collector:    collector,
		slots:        slots,
		location:     location,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// Start はポーリングループを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// スイープの失敗は記録して次のポーリングに進む。
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.logger.Info("スケジュールスイーパーを開始しました",
		slog.Duration("poll_interval", s.pollInterval),
		slog.Int("slot_count", len(s.slots)),
		slog.String("timezone", s.location.String()),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("スケジュールスイーパーを停止しました")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick は現在時刻がいずれかのスロットに一致するかを確認し、
// 未発火のスロットであればスイープを実行する。
func (s *Sweeper) Tick(ctx context.Context) {
	now := s.now().In(s.location)
	slot := now.Format("15:04")

	if !s.hasSlot(slot) {
		return
	}

	fireKey := now.Format("2006-01-02") + " " + slot
	if fireKey == s.lastFired {
		return
	}

	if err := s.RunOnce(ctx, slot); err != nil {
		// 失敗時はlastFiredを更新せず、同一スロット内の次のポーリングで再試行する。
		s.logger.Error("スケジュールスイープの実行に失敗しました",
			slog.String("slot", slot),
			slog.String("error", err.Error()),
		)
		return
	}
	s.lastFired = fireKey
}

// RunOnce はスイープを1回実行し、全在室セッションを強制終了する。
func (s *Sweeper) RunOnce(ctx context.Context, slot string) error {
	start := time.Now()

	closedCount, err := s.closer.CloseAll(ctx, model.ClosedBySchedule)
	if err != nil {
		return fmt.Errorf("在室セッションの一括終了に失敗しました: %w", err)
	}

	duration := time.Since(start)
	if s.collector != nil {
		s.collector.RecordSweep(closedCount, duration)
	}

	s.logger.Info("スケジュールスイープが完了しました",
		slog.String("slot", slot),
		slog.Int("closed_count", closedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// NextScheduledTime は指定時刻以降で最初に到来するスロットの時刻を返す。
// 当日の全スロットを過ぎている場合は翌日の最初のスロットを返す。
// スロットが空の場合はゼロ値を返す。
func (s *Sweeper) NextScheduledTime(from time.Time) time.Time {
	if len(s.slots) == 0 {
		return time.Time{}
	}

	local := from.In(s.location)
	for _, slot := range s.slots {
		t, err := time.ParseInLocation("15:04", slot, s.location)
		if err != nil {
			continue
		}
		candidate := time.Date(local.Year(), local.Month(), local.Day(),
			t.Hour(), t.Minute(), 0, 0, s.location)
		if candidate.After(local) {
			return candidate
		}
	}

	// 当日分はすべて過ぎているため翌日の最初のスロット
	first, err := time.ParseInLocation("15:04", s.slots[0], s.location)
	if err != nil {
		return time.Time{}
	}
	tomorrow := local.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(),
		first.Hour(), first.Minute(), 0, 0, s.location)
}

func (s *Sweeper) hasSlot(slot string) bool {
	for _, candidate := range s.slots {
		if candidate == slot {
			return true
		}
	}
	return false
}
