package report

import (
	"strconv"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

const (
	chartHeight   = 8
	chartBarWidth = 2
	chartBarGap   = 1
)

var barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

// dayChart draws one bar per day of sec, labelled with the day of month.
// It returns "" for a section with no days.
func dayChart(sec KindSection) string {
	if len(sec.Days) == 0 {
		return ""
	}

	width := len(sec.Days) * (chartBarWidth + chartBarGap)
	bc := barchart.New(width, chartHeight,
		barchart.WithBarGap(chartBarGap),
		barchart.WithBarWidth(chartBarWidth),
	)
	for _, d := range sec.Days {
		bc.Push(barchart.BarData{
			Label: strconv.Itoa(d.Day),
			Values: []barchart.BarValue{
				{Name: string(sec.Kind), Value: float64(d.Count), Style: barStyle},
			},
		})
	}
	bc.Draw()
	return bc.View()
}
