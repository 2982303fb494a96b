package trend

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

var base = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func snap(name string, value int64, at time.Time) domain.Snapshot {
	return domain.Snapshot{
		InvestmentName: name,
		InvestmentType: domain.TypeGold,
		Amount:         decimal.NewFromInt(1),
		Value:          decimal.NewFromInt(value),
		Timestamp:      at,
	}
}

func TestSeriesSortedChronologically(t *testing.T) {
	points := Series([]domain.Snapshot{
		snap("GOLD", 5400, base.Add(2*time.Hour)),
		snap("GOLD", 5300, base),
		snap("GOLD", 5350, base.Add(time.Hour)),
	})
	if len(points) != 3 {
		t.Fatalf("len = %d, want 3", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].X.Before(points[i-1].X) {
			t.Errorf("points not sorted at %d: %v before %v", i, points[i].X, points[i-1].X)
		}
	}
	if !points[0].Y.Equal(decimal.NewFromInt(5300)) {
		t.Errorf("first point Y = %v, want 5300", points[0].Y)
	}
}

func TestAggregateSeriesSumsSharedTimestamps(t *testing.T) {
	points := AggregateSeries([]domain.Snapshot{
		snap("GOLD", 5300, base),
		snap("BTC", 30000, base),
		snap("GOLD", 5400, base.Add(time.Hour)),
	})
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if !points[0].Y.Equal(decimal.NewFromInt(35300)) {
		t.Errorf("aggregated Y = %v, want 35300", points[0].Y)
	}
	if !points[1].Y.Equal(decimal.NewFromInt(5400)) {
		t.Errorf("second Y = %v, want 5400", points[1].Y)
	}
}

func TestLineFitsPerfectSlope(t *testing.T) {
	// Value rises 100 per hour; the regression endpoints must match exactly.
	points := Series([]domain.Snapshot{
		snap("GOLD", 1000, base),
		snap("GOLD", 1100, base.Add(time.Hour)),
		snap("GOLD", 1200, base.Add(2*time.Hour)),
	})
	line := Line(points)
	if len(line) != 2 {
		t.Fatalf("line points = %d, want 2", len(line))
	}
	if !line[0].X.Equal(base) || !line[1].X.Equal(base.Add(2*time.Hour)) {
		t.Errorf("line spans %v..%v, want first..last", line[0].X, line[1].X)
	}
	if f, _ := line[0].Y.Float64(); f < 999.9 || f > 1000.1 {
		t.Errorf("line start = %v, want ~1000", line[0].Y)
	}
	if f, _ := line[1].Y.Float64(); f < 1199.9 || f > 1200.1 {
		t.Errorf("line end = %v, want ~1200", line[1].Y)
	}
}

func TestLineDegenerateInputs(t *testing.T) {
	if got := Line(nil); got != nil {
		t.Errorf("Line(nil) = %v, want nil", got)
	}
	if got := Line([]Point{{X: base, Y: decimal.NewFromInt(1)}}); got != nil {
		t.Errorf("single point must yield no line, got %v", got)
	}
	// All points at the same instant: zero x-range.
	same := []Point{
		{X: base, Y: decimal.NewFromInt(1)},
		{X: base, Y: decimal.NewFromInt(2)},
	}
	if got := Line(same); got != nil {
		t.Errorf("zero x-range must yield no line, got %v", got)
	}
}
