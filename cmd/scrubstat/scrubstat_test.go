package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/tinytelemetry/scrubstat/internal/model"
)

const cephLine = " 7f2a3bfff700  0 log_channel(cluster) log [INF] : "

func scrubLine(ts, unit, action, status string) string {
	return ts + cephLine + unit + " " + action + " " + status
}

// writeSosreport lays out one extracted sosreport with a plain and a rotated gzip OSD log.
func writeSosreport(t *testing.T, extra ...string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "sosreport-stor01.1-2", "var", "log", "ceph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	plain := append([]string{
		scrubLine("2016-05-05 10:00:00.000000", "3.1ff", "scrub", "starts"),
		scrubLine("2016-05-05 10:01:30.000000", "3.1ff", "scrub", "ok"),
		"2016-05-05 11:00:00.123456 7f2a3bfff700  0 log_channel(cluster) log [WRN] : 3 slow requests, 1 included below; oldest blocked for > 30.546 secs",
		"2016-05-06 12:00:00.000000 7f0c2a3ff700  1 heartbeat_map is_healthy 'OSD::osd_op_tp thread 0x7f0c2a3ff700' had suicide timed out after 150",
		"    -12> 2016-05-06 11:59:00.000000 7f0c2a3ff700  1 heartbeat_map is_healthy 'OSD::osd_op_tp thread 0x7f0c2a3ff700' had suicide timed out after 150",
	}, extra...)
	if err := os.WriteFile(filepath.Join(dir, "ceph-osd.1.log"), []byte(strings.Join(plain, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	for _, l := range []string{
		scrubLine("2016-05-07 09:00:00.000000", "4.a", "deep-scrub", "starts"),
		scrubLine("2016-05-07 09:10:00.000000", "4.a", "deep-scrub", "ok"),
		scrubLine("2016-05-07 09:20:00.000000", "4.a", "deep-scrub", "starts"),
		scrubLine("2016-05-07 09:30:00.000000", "4.a", "deep-scrub", "ok"),
	} {
		zw.Write([]byte(l + "\n"))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ceph-osd.2.log.1.gz"), gz.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetScrubstatEnv(t)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yml"), "--quiet"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestScrubsCommand_JSON(t *testing.T) {
	root := writeSosreport(t)
	metricsPath := filepath.Join(t.TempDir(), "scrubstat.prom")

	out, err := runCLI(t, "scrubs", "--path", root, "--month", "5", "--format", "json", "--metrics-file", metricsPath)
	if err != nil {
		t.Fatalf("scrubs: %v\n%s", err, out)
	}

	var got struct {
		Month           string `json:"month"`
		DaemonsInMonth  int    `json:"daemons_in_month"`
		TotalScrubs     int    `json:"total_scrubs"`
		TotalDeepScrubs int    `json:"total_deep_scrubs"`
		Repeats         []struct {
			Daemon string `json:"daemon"`
			Unit   string `json:"unit"`
			Count  int    `json:"count"`
		} `json:"repeats"`
		Sections []struct {
			Kind string `json:"kind"`
			Days []struct {
				Day         int     `json:"day"`
				LongestSecs float64 `json:"longest_secs"`
			} `json:"days"`
		} `json:"sections"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got.Month != "5" || got.DaemonsInMonth != 2 || got.TotalScrubs != 1 || got.TotalDeepScrubs != 2 {
		t.Fatalf("report = %+v", got)
	}
	if len(got.Repeats) != 1 || got.Repeats[0].Daemon != "osd.2" || got.Repeats[0].Unit != "4.a" || got.Repeats[0].Count != 2 {
		t.Fatalf("repeats = %+v", got.Repeats)
	}
	if len(got.Sections) != 2 || len(got.Sections[0].Days) != 1 || got.Sections[0].Days[0].LongestSecs != 90 {
		t.Fatalf("sections = %+v", got.Sections)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), `scrubstat_scrub_completed_actions{kind="deep-scrub"} 2`) {
		t.Fatalf("metrics:\n%s", prom)
	}
}

func TestScrubsCommand_TextOtherMonth(t *testing.T) {
	root := writeSosreport(t)

	out, err := runCLI(t, "scrubs", "-p", root, "-m", "2016-06")
	if err != nil {
		t.Fatalf("scrubs: %v", err)
	}
	for _, want := range []string{"Scrubbing stats for month 2016-06", "0 OSDs scrubbed", "1 scrubs", "none"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestScrubsCommand_UnknownStatusAborts(t *testing.T) {
	root := writeSosreport(t, scrubLine("2016-05-05 10:02:00.000000", "3.2", "scrub", "queued"))

	out, err := runCLI(t, "scrubs", "--path", root, "--month", "5", "--format", "json")
	if err == nil {
		t.Fatalf("expected parse fault, got output:\n%s", out)
	}
	if !strings.Contains(err.Error(), `unknown status "queued"`) {
		t.Fatalf("error = %v", err)
	}
	if out != "" {
		t.Fatalf("no partial report expected, got:\n%s", out)
	}
}

func TestScrubsCommand_RequiresMonth(t *testing.T) {
	root := writeSosreport(t)

	if _, err := runCLI(t, "scrubs", "--path", root); err == nil || !strings.Contains(err.Error(), "--month is required") {
		t.Fatalf("expected missing month error, got %v", err)
	}
}

func TestScrubsCommand_InvalidFormat(t *testing.T) {
	root := writeSosreport(t)

	if _, err := runCLI(t, "scrubs", "--path", root, "--month", "5", "--format", "xml"); err == nil {
		t.Fatal("expected invalid format error")
	}
}

func TestScrubsCommand_UnknownTimezone(t *testing.T) {
	root := writeSosreport(t)

	_, err := runCLI(t, "scrubs", "--path", root, "--month", "5", "--timezone", "Mars/Olympus")
	if err == nil || !strings.Contains(err.Error(), "unknown timezone") {
		t.Fatalf("expected timezone error, got %v", err)
	}
}

func TestNewExtractor_UsesTimezone(t *testing.T) {
	x, err := newExtractor(appConfig{Timezone: "Local"})
	if err != nil {
		t.Fatalf("newExtractor: %v", err)
	}
	ev, ok := x.Scrub(model.IngestEnvelope{
		Source: "/var/log/ceph/ceph-osd.1.log",
		Line:   scrubLine("2016-05-05 10:00:00.000000", "3.1ff", "scrub", "starts"),
	})
	if !ok {
		t.Fatal("expected scrub event")
	}
	if ev.Timestamp.Location() != time.Local {
		t.Errorf("location = %v, want Local", ev.Timestamp.Location())
	}
}

func TestScrubsCommand_LogsUnmatchedSamples(t *testing.T) {
	odd := "2016-05-05 10:05:00.000000" + cephLine + "3.1 deep-scrub 1 errors"
	root := writeSosreport(t, odd)
	logPath := filepath.Join(t.TempDir(), "scrubstat.log")

	resetScrubstatEnv(t)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"scrubs", "--path", root, "--month", "5",
		"--config", filepath.Join(t.TempDir(), "none.yml"), "--log-file", logPath})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("scrubs: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"1 scrub lines did not match", "unmatched scrub line: " + odd} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log missing %q:\n%s", want, data)
		}
	}
}

func TestRejects_KeepsFirstSamples(t *testing.T) {
	var r rejects
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		r.add(l)
	}
	if r.n != 5 || len(r.samples) != maxRejectSamples || r.samples[0] != "a" {
		t.Errorf("rejects = %+v", r)
	}
}

func TestSlowRequestsCommand(t *testing.T) {
	root := writeSosreport(t)

	out, err := runCLI(t, "slow-requests", "--path", root)
	if err != nil {
		t.Fatalf("slow-requests: %v", err)
	}
	for _, want := range []string{"Slow request stats for 1 OSDs", "Total slow requests: 1", "30.546", "stor01"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSuicidesCommand_SkipsRecentEventsDump(t *testing.T) {
	root := writeSosreport(t)

	out, err := runCLI(t, "suicides", "--path", root, "--month", "5", "--format", "yaml")
	if err != nil {
		t.Fatalf("suicides: %v", err)
	}
	for _, want := range []string{"total: 1", "daemon: osd.1", "- 7f0c2a3ff700", "host: stor01"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	root := writeSosreport(t)
	dbPath := filepath.Join(t.TempDir(), "cache.duckdb")

	for i := 0; i < 2; i++ {
		if _, err := runCLI(t, "scrubs", "--path", root, "--month", "5", "--cache", "--db-path", dbPath); err != nil {
			t.Fatalf("cached run %d: %v", i, err)
		}
	}

	out, err := runCLI(t, "cache", "stats", "--db-path", dbPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if !strings.Contains(out, "2 files, 6 lines") {
		t.Fatalf("cache stats = %q", out)
	}

	out, err = runCLI(t, "cache", "prune", "--db-path", dbPath, "--cache-retention", "0")
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	if !strings.Contains(out, "removed 2 cache entries") {
		t.Fatalf("cache prune = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "Version:    dev") {
		t.Fatalf("version output = %q", out)
	}
}
