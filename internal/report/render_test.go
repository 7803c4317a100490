package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/scrubstat/internal/model"
	"github.com/tinytelemetry/scrubstat/internal/scrub"
	"github.com/tinytelemetry/scrubstat/internal/slowreq"
	"github.com/tinytelemetry/scrubstat/internal/suicide"
	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRender_ScrubText(t *testing.T) {
	pinRun(t)
	r := BuildScrubReport(fixtureEngine(t), model.Month{Month: time.May})

	var buf bytes.Buffer
	if err := Render(&buf, FormatText, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Scrubbing stats for month 5",
		"2 OSDs scrubbed",
		"4 PGs scrubbed",
		"4 scrubs",
		"2 deep-scrubs",
		"No. scrubs by day",
		"No. deep-scrubs by day",
		"osd.1 (2)",
		"5m0s",
		"4.1 repeated 2 times on osd.2",
		"1 dropped completions",
		"█",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_ScrubTextEmpty(t *testing.T) {
	pinRun(t)
	e, _, err := scrub.Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	r := BuildScrubReport(e, model.Month{Month: time.May})

	var buf bytes.Buffer
	if err := Render(&buf, FormatText, &r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if strings.Count(out, "none") != 2 {
		t.Errorf("expected a none row per kind:\n%s", out)
	}
	if !strings.Contains(out, "No repeated deep-scrubs detected") {
		t.Errorf("missing empty repeats line:\n%s", out)
	}
}

func TestRender_ScrubJSON(t *testing.T) {
	pinRun(t)
	r := BuildScrubReport(fixtureEngine(t), model.Month{Month: time.May})

	var buf bytes.Buffer
	if err := Render(&buf, FormatJSON, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if got["run_id"] != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("run_id = %v", got["run_id"])
	}
	if got["total_deep_scrubs"] != float64(2) {
		t.Fatalf("total_deep_scrubs = %v", got["total_deep_scrubs"])
	}
	if _, ok := got["Header"]; ok {
		t.Fatal("header must be flattened")
	}
}

func TestRender_ScrubYAML(t *testing.T) {
	pinRun(t)
	r := BuildScrubReport(fixtureEngine(t), model.Month{Month: time.May})

	var buf bytes.Buffer
	if err := Render(&buf, FormatYAML, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var got struct {
		RunID    string `yaml:"run_id"`
		Month    string `yaml:"month"`
		Sections []struct {
			Kind string `yaml:"kind"`
		} `yaml:"sections"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if got.RunID == "" || got.Month != "5" || len(got.Sections) != 2 || got.Sections[1].Kind != "deep-scrub" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestRender_SlowRequestText(t *testing.T) {
	pinRun(t)
	c := slowreq.NewCollection(10)
	c.Add(model.SlowRequestEvent{Host: "stor01", Daemon: "osd.1", Timestamp: base, Blocked: 30.5})
	c.Add(model.SlowRequestEvent{Host: "stor01", Daemon: "osd.1", Timestamp: base.Add(time.Hour), Blocked: 60})
	r := BuildSlowRequestReport(c, 10, nil)

	var buf bytes.Buffer
	if err := Render(&buf, FormatText, r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Slow request stats for 1 OSDs",
		"Total slow requests: 2",
		"Top 10",
		"60.000",
		"30.500",
		"2016-05-05 11:00:00",
		"2016-05",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_SlowRequestEmptyRendersNone(t *testing.T) {
	pinRun(t)
	r := BuildSlowRequestReport(slowreq.NewCollection(10), 10, nil)

	var buf bytes.Buffer
	if err := Render(&buf, FormatText, r); err != nil {
		t.Fatal(err)
	}
	// host, three rankings, host wait, month avg, day avg, day max
	if got := strings.Count(buf.String(), "none"); got != 8 {
		t.Fatalf("expected 8 none rows, got %d:\n%s", got, buf.String())
	}
}

func TestRender_SuicideJSONAndText(t *testing.T) {
	pinRun(t)
	c := suicide.NewCollection(model.Month{Month: time.May})
	c.Add(model.SuicideEvent{Host: "stor02", Daemon: "osd.4", Timestamp: base, Thread: "7f0c", Timeout: 150})
	r := BuildSuicideReport(c)

	var buf bytes.Buffer
	if err := Render(&buf, FormatText, r); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"OSD Suicide stats for month 5", "Total suicides: 1", "7f0c", "stor02"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := Render(&buf, FormatJSON, r); err != nil {
		t.Fatal(err)
	}
	var got struct {
		Total int `json:"total"`
		Days  []struct {
			Daemon  string   `json:"daemon"`
			Threads []string `json:"threads"`
		} `json:"days"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || len(got.Days) != 1 || got.Days[0].Daemon != "osd.4" || got.Days[0].Threads[0] != "7f0c" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestRender_UnsupportedTextType(t *testing.T) {
	t.Parallel()
	if err := Render(&bytes.Buffer{}, FormatText, 42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if err := Render(&bytes.Buffer{}, Format("xml"), ScrubReport{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
