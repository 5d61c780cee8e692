package report

import (
	"io"
	"strings"
	"testing"

	"github.com/bazbom/bazbom"
)

func boolPtr(b bool) *bool { return &b }

func TestSARIFEncodeLevelsByPriority(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{
		{
			Vulnerability: bazbom.Vulnerability{ID: "CVE-2021-44228", Summary: "Log4Shell"},
			Component:     bazbom.Component{Name: "log4j-core", Version: "2.14.1", Ecosystem: "Maven"},
			Priority:      bazbom.P0,
			Reachable:     boolPtr(true),
		},
		{
			Vulnerability: bazbom.Vulnerability{ID: "CVE-2022-1234", Summary: "minor issue"},
			Component:     bazbom.Component{Name: "left-pad", Version: "1.0.0", Ecosystem: "npm"},
			Priority:      bazbom.P3,
		},
	}

	enc := &SARIFEncoder{ToolName: "bazbom", ToolURI: "https://example.invalid/bazbom"}
	r, err := enc.Encode(matches)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(out)

	if !strings.Contains(doc, "CVE-2021-44228") {
		t.Error("missing rule id for log4shell")
	}
	if !strings.Contains(doc, `"level": "error"`) {
		t.Error("expected an error-level result for a P0 finding")
	}
	if !strings.Contains(doc, `"level": "note"`) {
		t.Error("expected a note-level result for a P3 finding")
	}
	if !strings.Contains(doc, "Maven:log4j-core@2.14.1") {
		t.Error("expected physical location URI in ecosystem:package@version form")
	}
}

func TestSARIFLevelMapping(t *testing.T) {
	cases := []struct {
		p    bazbom.Priority
		want string
	}{
		{bazbom.P0, "error"},
		{bazbom.P1, "error"},
		{bazbom.P2, "warning"},
		{bazbom.P3, "note"},
		{bazbom.P4, "note"},
	}
	for _, c := range cases {
		if got := sarifLevel(c.p); got != c.want {
			t.Errorf("sarifLevel(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}
