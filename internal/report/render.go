package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding of a report.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Render writes v to w. Text rendering supports the report types of this package.
func Render(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderText(w io.Writer, v any) error {
	var b strings.Builder
	switch r := v.(type) {
	case ScrubReport:
		writeScrubText(&b, r)
	case *ScrubReport:
		writeScrubText(&b, *r)
	case SlowRequestReport:
		writeSlowRequestText(&b, r)
	case *SlowRequestReport:
		writeSlowRequestText(&b, *r)
	case SuicideReport:
		writeSuicideText(&b, r)
	case *SuicideReport:
		writeSuicideText(&b, *r)
	default:
		return fmt.Errorf("report: no text rendering for %T", v)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func heading(b *strings.Builder, s string) {
	b.WriteString("\n")
	b.WriteString(headingStyle.Render(s))
	b.WriteString("\n")
}

func line(b *strings.Builder, format string, args ...any) {
	fmt.Fprintf(b, "  "+format+"\n", args...)
}

// writeTable renders rows under header, or a single "none" row when rows is empty.
func writeTable(b *strings.Builder, header table.Row, rows []table.Row) {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	if len(rows) == 0 {
		none := make(table.Row, len(header))
		none[0] = "none"
		for i := 1; i < len(none); i++ {
			none[i] = ""
		}
		tw.AppendRow(none)
	} else {
		tw.AppendRows(rows)
	}
	b.WriteString(tw.Render())
	b.WriteString("\n")
}

func secs(v float64) string {
	return time.Duration(v * float64(time.Second)).Round(time.Millisecond).String()
}

func footer(b *strings.Builder, h Header) {
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("run %s at %s", h.RunID, h.GeneratedAt.Format(time.RFC3339))))
	b.WriteString("\n")
}

func writeScrubText(b *strings.Builder, r ScrubReport) {
	heading(b, fmt.Sprintf("Scrubbing stats for month %s", r.Month))
	line(b, "%d OSDs scrubbed", r.DaemonsInMonth)
	line(b, "%d PGs scrubbed", r.UnitsInMonth)
	line(b, "%d scrubs", r.TotalScrubs)
	line(b, "%d deep-scrubs", r.TotalDeepScrubs)

	for _, sec := range r.Sections {
		heading(b, fmt.Sprintf("No. %ss by day", sec.Kind))
		rows := make([]table.Row, 0, len(sec.Days))
		for _, d := range sec.Days {
			rows = append(rows, table.Row{
				d.Day, d.Count, d.Daemons, d.Units,
				fmt.Sprintf("%s (%d)", d.Busiest, d.BusiestCount),
				d.LongestUnit, secs(d.LongestSecs),
			})
		}
		writeTable(b, table.Row{"Day", "Count", "OSDs", "PGs", "Most", "Longest PG", "Length"}, rows)
		if chart := dayChart(sec); chart != "" {
			b.WriteString(chart)
			b.WriteString("\n")
		}
	}

	heading(b, "Repeated deep-scrubs")
	if len(r.Repeats) == 0 {
		line(b, "No repeated deep-scrubs detected")
	} else {
		for _, rep := range r.Repeats {
			line(b, "%s repeated %d times on %s", rep.Unit, rep.Count, rep.Daemon)
		}
	}

	d := r.Diagnostics
	heading(b, "Diagnostics")
	line(b, "%d events, %d completed, %d pending", d.Events, d.Completed, d.Pending)
	line(b, "%d dropped completions, %d overwritten starts, %d out of order", d.Dropped, d.Overwritten, d.OutOfOrder)
	footer(b, r.Header)
}

func writeSlowRequestText(b *strings.Builder, r SlowRequestReport) {
	heading(b, fmt.Sprintf("Slow request stats for %d OSDs", len(r.Daemons)))
	line(b, "Total slow requests: %d", r.Total)

	heading(b, "OSDs by host")
	hostRows := make([]table.Row, 0, len(r.DaemonsByHost))
	for _, h := range r.DaemonsByHost {
		hostRows = append(hostRows, table.Row{h.Host, strings.Join(h.Daemons, " ")})
	}
	writeTable(b, table.Row{"Host", "OSDs"}, hostRows)

	heading(b, fmt.Sprintf("Top %d", r.TopK))
	rankTable := func(title string, ranked []rankedRow) {
		line(b, "%s", title)
		rows := make([]table.Row, 0, len(ranked))
		for _, e := range ranked {
			rows = append(rows, table.Row{e.daemon, e.value, e.at})
		}
		writeTable(b, table.Row{"OSD", "Wait (s)", "When"}, rows)
	}
	rankTable("Min Wait (s)", toRankedRows(r.LowestMins))
	rankTable("Max Wait (s)", toRankedRows(r.HighestMaxs))
	rankTable("Avg Wait (s)", toRankedRows(r.HighestAvgs))

	heading(b, "Total Wait By Host (s)")
	waitRows := make([]table.Row, 0, len(r.WaitByHost))
	for _, h := range r.WaitByHost {
		waitRows = append(waitRows, table.Row{h.Host, fmt.Sprintf("%.3f", h.Total)})
	}
	writeTable(b, table.Row{"Host", "Total"}, waitRows)

	periodTable := func(title, col string, rows []periodRow) {
		heading(b, title)
		out := make([]table.Row, 0, len(rows))
		for _, p := range rows {
			out = append(out, table.Row{p.period, p.value, p.daemon})
		}
		writeTable(b, table.Row{col, "Wait (s)", "Top OSD"}, out)
	}
	periodTable("Avg Wait By Month (s)", "Month", toPeriodRows(r.AvgByMonth))
	periodTable("Avg Wait By Day (s)", "Day", toPeriodRows(r.AvgByDay))
	periodTable("Max Wait By Day (s)", "Day", toPeriodRows(r.MaxByDay))
	footer(b, r.Header)
}

func writeSuicideText(b *strings.Builder, r SuicideReport) {
	heading(b, fmt.Sprintf("OSD Suicide stats for month %s", r.Month))
	line(b, "Total suicides: %d", r.Total)

	heading(b, "No. suicides by day")
	rows := make([]table.Row, 0, len(r.Days))
	for _, d := range r.Days {
		rows = append(rows, table.Row{d.Day, d.Count, d.Daemon, d.Host, strings.Join(d.Threads, " ")})
	}
	writeTable(b, table.Row{"Day", "Count", "Max OSD", "Host", "Threads"}, rows)

	heading(b, "OSDs by host")
	hostRows := make([]table.Row, 0, len(r.DaemonsByHost))
	for _, h := range r.DaemonsByHost {
		hostRows = append(hostRows, table.Row{h.Host, strings.Join(h.Daemons, " ")})
	}
	writeTable(b, table.Row{"Host", "OSDs"}, hostRows)
	footer(b, r.Header)
}
