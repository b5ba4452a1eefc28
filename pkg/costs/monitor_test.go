package costs

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	// A Wednesday, mid-month, mid-day.
	return &fakeClock{t: time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMonitor(config Config, opts ...Option) (*Monitor, *fakeClock) {
	clock := newFakeClock()
	m := NewMonitor(config, opts...)
	m.now = clock.now
	m.lastPrune = clock.now()
	return m, clock
}

func TestPeriodStart(t *testing.T) {
	// Wednesday 2025-06-18 14:30 UTC.
	now := time.Date(2025, 6, 18, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodDaily, time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC)},
		{PeriodWeekly, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)}, // Monday
		{PeriodMonthly, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := periodStart(tt.period, now); !got.Equal(tt.want) {
			t.Errorf("periodStart(%s) = %v, want %v", tt.period, got, tt.want)
		}
	}

	// Sunday rolls back to the previous Monday, not forward.
	sunday := time.Date(2025, 6, 22, 10, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	if got := periodStart(PeriodWeekly, sunday); !got.Equal(want) {
		t.Errorf("periodStart(weekly, sunday) = %v, want %v", got, want)
	}

	// A Monday is its own week start.
	monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	if got := periodStart(PeriodWeekly, monday); !got.Equal(want) {
		t.Errorf("periodStart(weekly, monday) = %v, want %v", got, want)
	}
}

func TestMonitor_CurrentCosts(t *testing.T) {
	m, clock := newTestMonitor(Config{})

	m.Record("openai", 0.05, 500, "gpt-4", 300, 200, nil)
	m.Record("anthropic", 0.03, 400, "claude", 250, 150, nil)
	m.Record("openai", 0.02, 100, "gpt-4", 60, 40, nil)

	stats := m.CurrentCosts(PeriodDaily, "")
	if stats.RequestCount != 3 {
		t.Errorf("request count = %d, want 3", stats.RequestCount)
	}
	if diff := stats.TotalCost - 0.10; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total cost = %v, want 0.10", stats.TotalCost)
	}
	if stats.TotalTokens != 1000 {
		t.Errorf("total tokens = %d, want 1000", stats.TotalTokens)
	}
	if diff := stats.ByProvider["openai"] - 0.07; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("openai cost = %v, want 0.07", stats.ByProvider["openai"])
	}
	if diff := stats.ByModel["claude"] - 0.03; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("claude cost = %v, want 0.03", stats.ByModel["claude"])
	}

	filtered := m.CurrentCosts(PeriodDaily, "anthropic")
	if filtered.RequestCount != 1 {
		t.Errorf("filtered request count = %d, want 1", filtered.RequestCount)
	}

	// Entries from before the period boundary are excluded.
	clock.advance(24 * time.Hour)
	next := m.CurrentCosts(PeriodDaily, "")
	if next.RequestCount != 0 {
		t.Errorf("next-day request count = %d, want 0", next.RequestCount)
	}
	month := m.CurrentCosts(PeriodMonthly, "")
	if month.RequestCount != 3 {
		t.Errorf("monthly request count = %d, want 3", month.RequestCount)
	}
}

func TestMonitor_EmptyAverages(t *testing.T) {
	m, _ := newTestMonitor(Config{})

	stats := m.CurrentCosts(PeriodDaily, "")
	if stats.AvgCostPerRequest != 0 || stats.AvgCostPerToken != 0 {
		t.Errorf("empty averages = %v/%v, want 0/0",
			stats.AvgCostPerRequest, stats.AvgCostPerToken)
	}
}

func TestMonitor_BudgetLevels(t *testing.T) {
	tests := []struct {
		name        string
		cost        float64
		wantLevel   AlertLevel
		wantPause   bool
		wantPercent float64
	}{
		{"below warning", 5.00, LevelInfo, false, 50},
		{"at warning", 8.00, LevelWarning, false, 80},
		{"at critical", 9.50, LevelCritical, false, 95},
		{"at limit", 10.00, LevelEmergency, true, 100},
		{"over limit", 12.00, LevelEmergency, true, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMonitor(Config{DailyLimit: 10.00})
			m.Record("p1", tt.cost, 100, "m", 60, 40, nil)

			status := m.BudgetStatus(PeriodDaily)
			if status.AlertLevel != tt.wantLevel {
				t.Errorf("level = %s, want %s", status.AlertLevel, tt.wantLevel)
			}
			if status.ShouldPause != tt.wantPause {
				t.Errorf("shouldPause = %v, want %v", status.ShouldPause, tt.wantPause)
			}
			if diff := status.UsagePercentage - tt.wantPercent; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("usage = %v%%, want %v%%", status.UsagePercentage, tt.wantPercent)
			}
			if m.IsBudgetExceeded(PeriodDaily) != tt.wantPause {
				t.Errorf("IsBudgetExceeded = %v, want %v", !tt.wantPause, tt.wantPause)
			}
		})
	}
}

func TestMonitor_UnlimitedBudget(t *testing.T) {
	m, _ := newTestMonitor(Config{})
	m.Record("p1", 1000.00, 100, "m", 60, 40, nil)

	status := m.BudgetStatus(PeriodDaily)
	if status.AlertLevel != LevelInfo || status.ShouldPause {
		t.Errorf("unlimited budget status = %s/%v, want info/false",
			status.AlertLevel, status.ShouldPause)
	}
}

func TestMonitor_SetLimits(t *testing.T) {
	m, _ := newTestMonitor(Config{DailyLimit: 100, WarningThreshold: 0.8, CriticalThreshold: 0.95})
	m.Record("p1", 9.00, 100, "m", 60, 40, nil)

	if got := m.BudgetStatus(PeriodDaily).AlertLevel; got != LevelInfo {
		t.Fatalf("level before = %s, want info", got)
	}

	m.SetLimits(10, 0, 0)

	status := m.BudgetStatus(PeriodDaily)
	if status.Limit != 10 {
		t.Errorf("Limit = %v, want 10", status.Limit)
	}
	if status.AlertLevel != LevelWarning {
		t.Errorf("level after tighter limit = %s, want warning", status.AlertLevel)
	}

	// The level re-arms against the new limit: only a further crossing
	// may alert again.
	var fired int
	m.OnAlert(func(Period, BudgetStatus) { fired++ })
	m.Record("p1", 0.01, 1, "m", 1, 0, nil)
	if fired != 0 {
		t.Errorf("alerts after re-arm = %d, want 0", fired)
	}
	m.Record("p1", 0.60, 1, "m", 1, 0, nil) // crosses 95%
	if fired != 1 {
		t.Errorf("alerts after critical crossing = %d, want 1", fired)
	}
}

// Recording $5 then $3.50 against a $10 daily limit crosses the 80%
// warning threshold once and must produce exactly one callback invocation.
func TestMonitor_WarningAlertFiresOnce(t *testing.T) {
	m, _ := newTestMonitor(Config{DailyLimit: 10.00, WarningThreshold: 0.80})

	var got []BudgetStatus
	m.OnAlert(func(period Period, status BudgetStatus) {
		if period == PeriodDaily {
			got = append(got, status)
		}
	})

	m.Record("p1", 5.00, 100, "m", 60, 40, nil)
	if len(got) != 0 {
		t.Fatalf("alert fired at 50%% usage")
	}

	m.Record("p1", 3.50, 100, "m", 60, 40, nil)
	if len(got) != 1 {
		t.Fatalf("alert invocations = %d, want 1", len(got))
	}
	if got[0].AlertLevel != LevelWarning {
		t.Errorf("alert level = %s, want warning", got[0].AlertLevel)
	}
	if got[0].UsagePercentage != 85.0 {
		t.Errorf("usage = %v, want 85.0", got[0].UsagePercentage)
	}

	// Staying inside the same level does not re-fire.
	m.Record("p1", 0.10, 10, "m", 6, 4, nil)
	if len(got) != 1 {
		t.Errorf("alert re-fired within the same level")
	}

	// Crossing into the next level fires again.
	m.Record("p1", 1.00, 10, "m", 6, 4, nil) // $9.60 = 96%
	if len(got) != 2 || got[1].AlertLevel != LevelCritical {
		t.Errorf("expected one critical alert, got %d invocations", len(got))
	}
}

func TestMonitor_AlertCallbackPanicRecovered(t *testing.T) {
	m, _ := newTestMonitor(Config{DailyLimit: 1.00})

	invoked := 0
	m.OnAlert(func(Period, BudgetStatus) { panic("broken notifier") })
	m.OnAlert(func(period Period, _ BudgetStatus) {
		if period == PeriodDaily {
			invoked++
		}
	})

	m.Record("p1", 2.00, 100, "m", 60, 40, nil)
	if invoked != 1 {
		t.Errorf("second callback invocations = %d, want 1", invoked)
	}
}

func TestMonitor_CheapestProvider(t *testing.T) {
	m, _ := newTestMonitor(Config{})

	// No usage yet: no answer.
	if got := m.CheapestProvider([]string{"a", "b"}, PeriodDaily); got != "" {
		t.Errorf("cheapest with no usage = %q, want \"\"", got)
	}

	m.Record("a", 0.06, 100, "m", 60, 40, nil) // avg 0.06
	m.Record("a", 0.02, 100, "m", 60, 40, nil) // avg 0.04
	m.Record("b", 0.03, 100, "m", 60, 40, nil) // avg 0.03

	if got := m.CheapestProvider([]string{"a", "b"}, PeriodDaily); got != "b" {
		t.Errorf("cheapest = %q, want b", got)
	}

	// Candidates without usage are ignored, not treated as free.
	if got := m.CheapestProvider([]string{"a", "b", "c"}, PeriodDaily); got != "b" {
		t.Errorf("cheapest with unused candidate = %q, want b", got)
	}
}

func TestMonitor_ResetTracking(t *testing.T) {
	m, _ := newTestMonitor(Config{})

	m.Record("a", 0.05, 100, "m", 60, 40, nil)
	m.Record("b", 0.03, 100, "m", 60, 40, nil)

	m.ResetTracking("a")
	if stats := m.CurrentCosts(PeriodDaily, "a"); stats.RequestCount != 0 || stats.TotalCost != 0 {
		t.Errorf("after provider reset: %d requests, %v cost", stats.RequestCount, stats.TotalCost)
	}
	if stats := m.CurrentCosts(PeriodDaily, "b"); stats.RequestCount != 1 {
		t.Errorf("other provider lost entries: %d requests", stats.RequestCount)
	}

	// Idempotent: resetting again changes nothing.
	m.ResetTracking("a")
	m.ResetTracking("")
	m.ResetTracking("")
	stats := m.CurrentCosts(PeriodDaily, "")
	if stats.RequestCount != 0 || stats.TotalCost != 0 || stats.TotalTokens != 0 {
		t.Errorf("after full reset: %+v", stats)
	}
}

func TestMonitor_RetentionPruneThrottled(t *testing.T) {
	m, clock := newTestMonitor(Config{RetentionDays: 30})

	m.Record("a", 0.01, 10, "m", 6, 4, nil)

	// 31 days later the old entry is past retention, but the prune only
	// runs once the hourly throttle allows it.
	clock.advance(31 * 24 * time.Hour)
	m.Record("a", 0.01, 10, "m", 6, 4, nil)

	if got := len(m.Entries()); got != 1 {
		t.Errorf("entries after prune = %d, want 1", got)
	}
}

func TestMonitor_ExportRoundTrip(t *testing.T) {
	m, _ := newTestMonitor(Config{})

	m.Record("openai", 0.05, 500, "gpt-4", 300, 200, map[string]string{"req": "r-1"})
	m.Record("anthropic", 0.031, 400, "claude", 250, 150, nil)

	// JSON round-trip.
	raw, err := m.Export(FormatJSON)
	if err != nil {
		t.Fatalf("json export: %v", err)
	}
	var decoded []Entry
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("json entries = %d, want 2", len(decoded))
	}
	original := m.Entries()
	for i, e := range decoded {
		want := original[i]
		if e.Provider != want.Provider || e.Cost != want.Cost || e.TokensUsed != want.TokensUsed ||
			e.PromptTokens != want.PromptTokens || e.CompletionTokens != want.CompletionTokens ||
			e.Model != want.Model {
			t.Errorf("json entry %d = %+v, want %+v", i, e, want)
		}
	}

	// CSV round-trip.
	raw, err = m.Export(FormatCSV)
	if err != nil {
		t.Fatalf("csv export: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatalf("csv decode: %v", err)
	}
	if len(records) != 3 { // header + 2 rows
		t.Fatalf("csv rows = %d, want 3", len(records))
	}
	for i, rec := range records[1:] {
		want := original[i]
		if rec[0] != want.Provider || rec[6] != want.Model {
			t.Errorf("csv row %d provider/model = %s/%s", i, rec[0], rec[6])
		}
		cost, err := strconv.ParseFloat(rec[2], 64)
		if err != nil || cost != want.Cost {
			t.Errorf("csv row %d cost = %s, want %v", i, rec[2], want.Cost)
		}
		tokens, err := strconv.Atoi(rec[3])
		if err != nil || tokens != want.TokensUsed {
			t.Errorf("csv row %d tokens = %s, want %d", i, rec[3], want.TokensUsed)
		}
	}

	if _, err := m.Export(Format("xml")); err == nil {
		t.Error("unsupported format should error")
	}
}

type recordingArchiver struct {
	entries []Entry
}

func (a *recordingArchiver) Append(e Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

func TestMonitor_Archiver(t *testing.T) {
	archive := &recordingArchiver{}
	m, _ := newTestMonitor(Config{}, WithArchiver(archive))

	m.Record("a", 0.01, 10, "m", 6, 4, nil)
	m.Record("b", 0.02, 20, "m", 12, 8, nil)

	if len(archive.entries) != 2 {
		t.Fatalf("archived entries = %d, want 2", len(archive.entries))
	}
	if archive.entries[1].Provider != "b" {
		t.Errorf("archived provider = %q, want b", archive.entries[1].Provider)
	}
}
