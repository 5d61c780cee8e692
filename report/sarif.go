package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/bazbom/bazbom"
)

// SARIFEncoder writes matches as a SARIF 2.1.0 log, per spec §6's
// `findings/sca.sarif` output and result schema.
type SARIFEncoder struct {
	ToolName string
	ToolURI  string
}

// Encode renders matches as a SARIF 2.1.0 document.
func (e *SARIFEncoder) Encode(matches []bazbom.VulnerabilityMatch) (io.Reader, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "report.SARIFEncoder.Encode", Inner: err}
	}

	run := sarif.NewRunWithInformationURI(e.ToolName, e.ToolURI)
	seenRules := make(map[string]bool)

	for _, m := range matches {
		ruleID := m.Vulnerability.ID
		if !seenRules[ruleID] {
			run.AddRule(ruleID).
				WithDescription(m.Vulnerability.Summary).
				WithFullDescription(sarif.NewMultiformatMessageString(m.Vulnerability.Details))
			seenRules[ruleID] = true
		}

		uri := fmt.Sprintf("%s:%s@%s", m.Component.Ecosystem, m.Component.Name, m.Component.Version)
		result := run.CreateResultForRule(ruleID).
			WithLevel(sarifLevel(m.Priority)).
			WithMessage(sarif.NewTextMessage(m.Vulnerability.Summary)).
			WithLocations([]*sarif.Location{
				sarif.NewLocationWithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewSimpleArtifactLocation(uri)),
				),
			})
		result.WithProperties(resultProperties(m))
		run.AddResult(result)
	}

	report.AddRun(run)

	buf := &bytes.Buffer{}
	if err := report.PrettyWrite(buf); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "report.SARIFEncoder.Encode", Inner: err}
	}
	return buf, nil
}

// sarifLevel maps a priority to the SARIF result level, per spec §6:
// P0/P1 -> error, P2 -> warning, P3/P4 -> note.
func sarifLevel(p bazbom.Priority) string {
	switch p {
	case bazbom.P0, bazbom.P1:
		return "error"
	case bazbom.P2:
		return "warning"
	default:
		return "note"
	}
}

func resultProperties(m bazbom.VulnerabilityMatch) *sarif.PropertyBag {
	props := sarif.NewPropertyBag()
	props.Add("vulnerability_id", m.Vulnerability.ID)
	props.Add("component", m.Component.Name)
	props.Add("version", m.Component.Version)
	props.Add("priority", string(m.Priority))
	if m.EPSS != nil {
		props.Add("epss_score", m.EPSS.Score)
	}
	if m.KEV != nil {
		props.Add("cisa_kev", true)
	}
	if m.Reachable != nil {
		props.Add("reachable", *m.Reachable)
	}
	return props
}
