package http

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

const (
	chartWidth   = 640
	chartHeight  = 240
	chartPadding = 24
)

// chartView is an inline SVG polyline of the cumulative series.
type chartView struct {
	Width, Height int
	Points        string
	Dots          []chartDot
	ZeroY         float64
	ShowZero      bool
	MinLabel      string
	MaxLabel      string
	StartLabel    string
	EndLabel      string
}

type chartDot struct {
	X, Y  float64
	Title string
}

// buildChart scales the series into the chart box. The value axis always
// includes zero so the sign of the balance reads at a glance.
func buildChart(series []core.Point, currency string) chartView {
	c := chartView{Width: chartWidth, Height: chartHeight}
	if len(series) == 0 {
		return c
	}

	lo, hi := decimal.Zero, decimal.Zero
	for _, p := range series {
		lo = decimal.Min(lo, p.Cumulative)
		hi = decimal.Max(hi, p.Cumulative)
	}
	if lo.Equal(hi) {
		hi = lo.Add(decimal.NewFromInt(1))
	}
	span := hi.Sub(lo).InexactFloat64()

	first, last := series[0].Date.Time, series[len(series)-1].Date.Time
	days := last.Sub(first).Hours() / 24

	innerW := float64(chartWidth - 2*chartPadding)
	innerH := float64(chartHeight - 2*chartPadding)

	x := func(i int) float64 {
		switch {
		case days > 0:
			return chartPadding + series[i].Date.Sub(first).Hours()/24/days*innerW
		case len(series) > 1:
			return chartPadding + float64(i)/float64(len(series)-1)*innerW
		default:
			return chartWidth / 2
		}
	}
	y := func(v decimal.Decimal) float64 {
		return chartPadding + hi.Sub(v).InexactFloat64()/span*innerH
	}

	pts := make([]string, len(series))
	c.Dots = make([]chartDot, len(series))
	for i, p := range series {
		px, py := x(i), y(p.Cumulative)
		pts[i] = fmt.Sprintf("%.1f,%.1f", px, py)
		c.Dots[i] = chartDot{X: px, Y: py, Title: p.Date.String() + ": " + formatAmount(p.Cumulative, currency)}
	}
	c.Points = strings.Join(pts, " ")

	c.ZeroY = y(decimal.Zero)
	c.ShowZero = lo.IsNegative() && hi.IsPositive()
	c.MinLabel = formatAmount(lo, currency)
	c.MaxLabel = formatAmount(hi, currency)
	c.StartLabel = series[0].Date.String()
	c.EndLabel = series[len(series)-1].Date.String()
	return c
}
