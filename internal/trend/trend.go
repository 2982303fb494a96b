// Package trend prepares chart point series and trend lines for the
// presentation layer. The charting library itself is an external
// collaborator consuming {x, y} point arrays.
package trend

import (
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/domain"
)

// Point is one chart coordinate: an instant and a USD value.
type Point struct {
	X time.Time       `json:"x"`
	Y decimal.Decimal `json:"y"`
}

// Series converts one investment's snapshots into chronological points.
func Series(snapshots []domain.Snapshot) []Point {
	points := lo.Map(snapshots, func(s domain.Snapshot, _ int) Point {
		return Point{X: s.Timestamp, Y: s.Value}
	})
	sort.Slice(points, func(i, j int) bool { return points[i].X.Before(points[j].X) })
	return points
}

// AggregateSeries sums values across all investments sharing a timestamp,
// producing the overall portfolio series.
func AggregateSeries(snapshots []domain.Snapshot) []Point {
	groups := lo.GroupBy(snapshots, func(s domain.Snapshot) time.Time {
		return s.Timestamp
	})
	points := make([]Point, 0, len(groups))
	for ts, snaps := range groups {
		total := lo.Reduce(snaps, func(acc decimal.Decimal, s domain.Snapshot, _ int) decimal.Decimal {
			return acc.Add(s.Value)
		}, decimal.Zero)
		points = append(points, Point{X: ts, Y: total})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].X.Before(points[j].X) })
	return points
}

// Line fits a least-squares regression over the points and returns the two
// trend-line endpoints at the first and last instants. Fewer than two
// points, or a degenerate x-range, yields no line.
func Line(points []Point) []Point {
	if len(points) < 2 {
		return nil
	}

	// X values are offsets from the first instant; raw unix millis squared
	// overflow float64 precision.
	origin := points[0].X.UnixMilli()
	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		x := float64(p.X.UnixMilli() - origin)
		y, _ := p.Y.Float64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denom := n*sumX2 - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	first := points[0].X
	last := points[len(points)-1].X
	return []Point{
		{X: first, Y: decimal.NewFromFloat(intercept)},
		{X: last, Y: decimal.NewFromFloat(slope*float64(last.UnixMilli()-origin) + intercept)},
	}
}
