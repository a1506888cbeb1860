package logs_test

import (
	"strings"
	"testing"

	"github.com/manolodalbo/nurse-cadet/internal/logs"
)

const sampleLine = `{"ts":"2026-03-01T10:00:00Z","level":"warn","msg":"extraction failed","component":"pipeline","run_id":"4f1c2d3e-aaaa","unit":"Box_A","item":"a2.jpg","event_type":"item_failed","reason":"JSON parsing error"}`

func TestParseAndFormat(t *testing.T) {
	entry := logs.Parse(sampleLine)
	if entry.Level != "warn" || entry.Component != "pipeline" || entry.Field("unit") != "Box_A" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	line := logs.Format(entry)
	for _, want := range []string{"WARN pipeline: extraction failed", "item=a2.jpg", `reason="JSON parsing error"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Index(line, "event_type=") > strings.Index(line, "unit=") {
		t.Fatalf("fields must be sorted: %q", line)
	}

	plain := logs.Parse("not json")
	if logs.Format(plain) != "not json" {
		t.Fatalf("non-JSON lines must pass through, got %q", logs.Format(plain))
	}
}

func TestFilterMatch(t *testing.T) {
	entry := logs.Parse(sampleLine)
	cases := []struct {
		name   string
		filter logs.Filter
		want   bool
	}{
		{"empty", logs.Filter{}, true},
		{"level below", logs.Filter{Level: "info"}, true},
		{"level above", logs.Filter{Level: "error"}, false},
		{"run prefix", logs.Filter{RunID: "4f1c"}, true},
		{"other run", logs.Filter{RunID: "ffff"}, false},
		{"unit", logs.Filter{Unit: "Box_A"}, true},
		{"other unit", logs.Filter{Unit: "Box_B"}, false},
		{"event", logs.Filter{Event: "item_failed"}, true},
		{"search", logs.Filter{Search: "json parsing"}, true},
		{"search miss", logs.Filter{Search: "timeout"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Match(entry); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}
