package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/tinytelemetry/scrubstat/internal/slowreq"
)

type rankedRow struct {
	daemon string
	value  string
	at     string
}

func toRankedRows(ranked []slowreq.Ranked) []rankedRow {
	out := make([]rankedRow, 0, len(ranked))
	for _, r := range ranked {
		at := make([]string, len(r.At))
		for i, t := range r.At {
			at[i] = t.Format(time.DateTime)
		}
		out = append(out, rankedRow{daemon: r.Daemon, value: fmt.Sprintf("%.3f", r.Value), at: strings.Join(at, " ")})
	}
	return out
}

type periodRow struct {
	period string
	value  string
	daemon string
}

func toPeriodRows(values []slowreq.PeriodValue) []periodRow {
	out := make([]periodRow, 0, len(values))
	for _, v := range values {
		out = append(out, periodRow{period: v.Period, value: fmt.Sprintf("%.3f", v.Value), daemon: v.Daemon})
	}
	return out
}
