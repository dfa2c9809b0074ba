package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/clubdesk/internal/model"
)

// --- モック ---

type mockCloser struct {
	closeAllFn func(ctx context.Context, closedBy model.ClosedBy) (int, error)
	calls      int
}

func (m *mockCloser) CloseAll(ctx context.Context, closedBy model.ClosedBy) (int, error) {
	m.calls++
	if m.closeAllFn != nil {
		return m.closeAllFn(ctx, closedBy)
	}
	return 0, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestSweeper(closer SessionCloser, slots []string) (*Sweeper, *time.Time) {
	s := NewSweeper(closer, discardLogger(), nil, slots, time.UTC, 30*time.Second)
	current := time.Date(2026, 4, 6, 15, 4, 30, 0, time.UTC)
	s.now = func() time.Time { return current }
	return s, &current
}

// --- テスト ---

// TestSweeper_Tick_FiresOnSlot はスロット時刻での発火を検証する。
func TestSweeper_Tick_FiresOnSlot(t *testing.T) {
	closer := &mockCloser{
		closeAllFn: func(ctx context.Context, closedBy model.ClosedBy) (int, error) {
			if closedBy != model.ClosedBySchedule {
				t.Errorf("expected closed_by schedule, got %s", closedBy)
			}
			return 3, nil
		},
	}
	s, _ := newTestSweeper(closer, []string{"15:04"})

	s.Tick(context.Background())
	if closer.calls != 1 {
		t.Errorf("expected 1 sweep, got %d", closer.calls)
	}
}

// TestSweeper_Tick_NoFireOutsideSlot はスロット外の時刻で発火しないことを検証する。
func TestSweeper_Tick_NoFireOutsideSlot(t *testing.T) {
	closer := &mockCloser{}
	s, clock := newTestSweeper(closer, []string{"17:00"})

	s.Tick(context.Background())
	*clock = clock.Add(time.Minute)
	s.Tick(context.Background())

	if closer.calls != 0 {
		t.Errorf("expected no sweeps, got %d", closer.calls)
	}
}

// TestSweeper_Tick_AtMostOncePerSlot は同一スロットでの二重発火防止を検証する。
// 30秒ポーリングでは同じ"HH:MM"内に複数回のティックが発生する。
func TestSweeper_Tick_AtMostOncePerSlot(t *testing.T) {
	closer := &mockCloser{}
	s, clock := newTestSweeper(closer, []string{"15:04"})
	ctx := context.Background()

	s.Tick(ctx)
	*clock = clock.Add(30 * time.Second) // まだ15:04内
	s.Tick(ctx)

	if closer.calls != 1 {
		t.Errorf("expected exactly 1 sweep within the slot, got %d", closer.calls)
	}
}

// TestSweeper_Tick_FiresAgainNextDay は翌日の同一スロットで再発火することを検証する。
func TestSweeper_Tick_FiresAgainNextDay(t *testing.T) {
	closer := &mockCloser{}
	s, clock := newTestSweeper(closer, []string{"15:04"})
	ctx := context.Background()

	s.Tick(ctx)
	*clock = clock.AddDate(0, 0, 1)
	s.Tick(ctx)

	if closer.calls != 2 {
		t.Errorf("expected 2 sweeps across days, got %d", closer.calls)
	}
}

// TestSweeper_Tick_MultipleSlots は複数スロットそれぞれで発火することを検証する。
func TestSweeper_Tick_MultipleSlots(t *testing.T) {
	closer := &mockCloser{}
	s, clock := newTestSweeper(closer, []string{"15:04", "16:00"})
	ctx := context.Background()

	s.Tick(ctx)
	*clock = time.Date(2026, 4, 6, 16, 0, 10, 0, time.UTC)
	s.Tick(ctx)

	if closer.calls != 2 {
		t.Errorf("expected 2 sweeps, got %d", closer.calls)
	}
}

// TestSweeper_Tick_ContinuesAfterFailure はスイープ失敗後もループが継続することを検証する。
func TestSweeper_Tick_ContinuesAfterFailure(t *testing.T) {
	closer := &mockCloser{
		closeAllFn: func(ctx context.Context, closedBy model.ClosedBy) (int, error) {
			return 0, errors.New("db down")
		},
	}
	s, clock := newTestSweeper(closer, []string{"15:04", "16:00"})
	ctx := context.Background()

	s.Tick(ctx) // 失敗するが panic しない
	*clock = time.Date(2026, 4, 6, 16, 0, 10, 0, time.UTC)
	s.Tick(ctx)

	if closer.calls != 2 {
		t.Errorf("expected sweep attempts to continue after failure, got %d", closer.calls)
	}
}

// TestSweeper_Tick_RetriesWithinSlotAfterFailure はスイープ失敗時に
// 同一スロット内の次のポーリングで再試行されることを検証する。
func TestSweeper_Tick_RetriesWithinSlotAfterFailure(t *testing.T) {
	closer := &mockCloser{
		closeAllFn: func(ctx context.Context, closedBy model.ClosedBy) (int, error) {
			return 0, errors.New("db down")
		},
	}
	s, clock := newTestSweeper(closer, []string{"15:04"})
	ctx := context.Background()

	s.Tick(ctx) // 15:04:30 失敗
	if closer.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", closer.calls)
	}

	// 障害復旧後、まだ15:04内
	closer.closeAllFn = nil
	*clock = clock.Add(20 * time.Second)
	s.Tick(ctx)
	if closer.calls != 2 {
		t.Fatalf("expected retry within the same slot, got %d attempts", closer.calls)
	}

	// 成功後は同一スロット内で再発火しない
	*clock = clock.Add(5 * time.Second)
	s.Tick(ctx)
	if closer.calls != 2 {
		t.Errorf("expected no further sweeps after success, got %d", closer.calls)
	}
}

// TestSweeper_NextScheduledTime は次回スイープ時刻の算出を検証する。
func TestSweeper_NextScheduledTime(t *testing.T) {
	s, _ := newTestSweeper(&mockCloser{}, []string{"07:50", "15:05", "17:00"})

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "次のスロットが当日中にある",
			from: time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 6, 15, 5, 0, 0, time.UTC),
		},
		{
			name: "当日の全スロットを過ぎている",
			from: time.Date(2026, 4, 6, 18, 0, 0, 0, time.UTC),
			want: time.Date(2026, 4, 7, 7, 50, 0, 0, time.UTC),
		},
		{
			name: "スロット時刻ちょうどは次のスロットに進む",
			from: time.Date(2026, 4, 6, 15, 5, 0, 0, time.UTC),
			want: time.Date(2026, 4, 6, 17, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.NextScheduledTime(tt.from)
			if !got.Equal(tt.want) {
				t.Errorf("NextScheduledTime(%v) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

// TestSweeper_NextScheduledTime_NoSlots はスロットなしの場合のゼロ値を検証する。
func TestSweeper_NextScheduledTime_NoSlots(t *testing.T) {
	s, _ := newTestSweeper(&mockCloser{}, nil)

	got := s.NextScheduledTime(time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC))
	if !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}

// TestNewSweeper_DefaultPollInterval はポーリング間隔のデフォルト適用を検証する。
func TestNewSweeper_DefaultPollInterval(t *testing.T) {
	s := NewSweeper(&mockCloser{}, discardLogger(), nil, nil, time.UTC, 0)
	if s.pollInterval != 30*time.Second {
		t.Errorf("expected default 30s, got %v", s.pollInterval)
	}
}
