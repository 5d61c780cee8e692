package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/internal/httputil"
)

// osvQueryRequest is OSV's single-package "query by package" request body:
// https://osv.dev finds every advisory affecting one package+version in
// one ecosystem.
type osvQueryRequest struct {
	Version string        `json:"version,omitempty"`
	Package osvQueryPkg   `json:"package"`
}

type osvQueryPkg struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvQueryResponse struct {
	Vulns []osvVuln `json:"vulns"`
}

type osvVuln struct {
	ID       string         `json:"id"`
	Aliases  []string       `json:"aliases,omitempty"`
	Summary  string         `json:"summary,omitempty"`
	Details  string         `json:"details,omitempty"`
	Severity []osvSeverityEntry `json:"severity,omitempty"`
	Affected []osvAffected  `json:"affected,omitempty"`
	References []osvReference `json:"references,omitempty"`
	Published string       `json:"published,omitempty"`
	Modified  string       `json:"modified,omitempty"`
}

type osvAffected struct {
	Package osvQueryPkg  `json:"package"`
	Ranges  []osvRange   `json:"ranges,omitempty"`
}

type osvRange struct {
	Type   string     `json:"type"`
	Events []osvEvent `json:"events"`
}

type osvEvent struct {
	Introduced   string `json:"introduced,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	LastAffected string `json:"last_affected,omitempty"`
}

type osvReference struct {
	URL string `json:"url"`
}

// QueryPackage asks OSV for every advisory known to affect name in
// ecosystem, translating OSV's affected/ranges/events shape into
// bazbom's own [bazbom.Vulnerability] model for the matcher (C5) to
// index. name must already be OSV's package identifier (see
// [bazbom.Component.PackageName]) — "groupId:artifactId" for the Maven
// family, "@scope/name" for scoped npm packages — not a bare component
// name, or OSV silently returns zero results for every namespaced
// package. Results are not disk-cached the way EPSS/KEV/per-CVE OSV
// lookups are (§4.2's cache layout is scoped to those three feeds); a
// scan's component set is different every run, so a per-package query
// cache would rarely hit anyway.
func (s *Store) QueryPackage(ctx context.Context, ecosystem, name, version string) ([]bazbom.Vulnerability, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/Store/QueryPackage", "ecosystem", ecosystem, "package", name)

	body, err := json.Marshal(osvQueryRequest{
		Version: version,
		Package: osvQueryPkg{Name: name, Ecosystem: osvEcosystemName(ecosystem)},
	})
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.QueryPackage", Inner: err}
	}

	url := DefaultOSVBaseURL + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.QueryPackage", Inner: err}
	}
	req.Header.Set("Content-Type", "application/json")

	tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req = req.WithContext(tctx)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrTransient, Op: "advisory.QueryPackage", Inner: err}
	}
	defer resp.Body.Close()
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		zlog.Warn(ctx).Err(err).Msg("osv package query failed")
		return nil, fmt.Errorf("advisory.QueryPackage: %w", err)
	}

	var qr osvQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.QueryPackage", Inner: err}
	}

	out := make([]bazbom.Vulnerability, 0, len(qr.Vulns))
	for _, v := range qr.Vulns {
		out = append(out, vulnerabilityFromOSV(v, ecosystem, name))
	}
	return out, nil
}

// osvEcosystemName maps bazbom's internal ecosystem names to OSV's own
// ecosystem identifiers, per https://ossf.github.io/osv-schema/#affectedpackage-field.
func osvEcosystemName(ecosystem string) string {
	switch ecosystem {
	case "Maven", "Gradle", "Bazel":
		return "Maven"
	case "npm":
		return "npm"
	case "PyPI":
		return "PyPI"
	case "Cargo":
		return "crates.io"
	case "Go":
		return "Go"
	case "Ruby":
		return "RubyGems"
	case "Composer":
		return "Packagist"
	default:
		return ecosystem
	}
}

func vulnerabilityFromOSV(v osvVuln, ecosystem, name string) bazbom.Vulnerability {
	var refs []string
	for _, r := range v.References {
		refs = append(refs, r.URL)
	}

	var affected []bazbom.AffectedPackage
	for _, a := range v.Affected {
		var ranges []bazbom.VersionRange
		for _, r := range a.Ranges {
			var events []bazbom.VersionEvent
			for _, e := range r.Events {
				switch {
				case e.Introduced != "":
					events = append(events, bazbom.VersionEvent{Kind: bazbom.Introduced, Version: e.Introduced})
				case e.Fixed != "":
					events = append(events, bazbom.VersionEvent{Kind: bazbom.Fixed, Version: e.Fixed})
				case e.LastAffected != "":
					events = append(events, bazbom.VersionEvent{Kind: bazbom.LastAffected, Version: e.LastAffected})
				}
			}
			ranges = append(ranges, bazbom.VersionRange{RangeType: bazbom.RangeType(r.Type), Events: events})
		}
		affected = append(affected, bazbom.AffectedPackage{
			Ecosystem: ecosystem,
			Package:   a.Package.Name,
			Ranges:    ranges,
		})
	}

	var sev *bazbom.Severity
	if rec := (osvRecord{Severity: v.Severity}); len(rec.Severity) > 0 {
		sev = severityFromOSV(rec)
	}
	vuln := bazbom.Vulnerability{
		ID:         v.ID,
		Aliases:    v.Aliases,
		Affected:   affected,
		Summary:    v.Summary,
		Details:    v.Details,
		References: refs,
	}
	if sev != nil {
		vuln.Severity = sev
	}
	if t, err := time.Parse(time.RFC3339, v.Published); err == nil {
		vuln.Published = t
	}
	if t, err := time.Parse(time.RFC3339, v.Modified); err == nil {
		vuln.Modified = t
	}
	return vuln
}
