package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/internal/httputil"
)

// DefaultOSVBaseURL is the OSV per-ID vulnerability API.
const DefaultOSVBaseURL = `https://api.osv.dev/v1`

type osvSeverityEntry struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

type osvRecord struct {
	Severity         []osvSeverityEntry `json:"severity,omitempty"`
	DatabaseSpecific map[string]any     `json:"database_specific,omitempty"`
}

// osvIDVariants returns the advisory ID probe order for a CVE, given an
// optional OS hint from the SBOM (distro name, lowercased match). Plain
// CVE IDs alone are probed when the hint is empty or unrecognized.
func osvIDVariants(cve, osHint string) []string {
	hint := strings.ToLower(osHint)
	switch {
	case strings.Contains(hint, "alpine"):
		return []string{"ALPINE-" + cve, cve}
	case strings.Contains(hint, "debian"):
		return []string{"DSA-" + cve, cve}
	case strings.Contains(hint, "ubuntu"):
		return []string{"USN-" + cve, cve}
	case strings.Contains(hint, "rhel"), strings.Contains(hint, "centos"), strings.Contains(hint, "fedora"):
		return []string{"RHSA-" + cve, cve}
	default:
		return []string{cve}
	}
}

func (s *Store) osvCachePath(id string) string {
	return filepath.Join(s.root, "osv", encodeKey(id)+".json")
}

// SeverityFallback resolves an unknown severity for a CVE, per spec §4.2:
// only plain CVE-* IDs are queried against OSV's OS-specific alias
// variants (§4.6 restricts this to the matcher's own call site, but the
// probe order lives here since it's the same OSV client). If OSV yields no
// CVSS vector or qualitative severity, NVD is consulted as a last resort.
// A severity found through OSV is persisted back into the OSV cache under
// the canonical CVE ID so future lookups are free; a severity found
// through NVD is returned without being cached.
func (s *Store) SeverityFallback(ctx context.Context, cve, osHint string) (*bazbom.Severity, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/Store/SeverityFallback", "cve", cve)
	if !strings.HasPrefix(cve, "CVE-") {
		return nil, nil
	}

	for _, variant := range osvIDVariants(cve, osHint) {
		rec, err := s.fetchOSVRecord(ctx, variant)
		if err != nil {
			zlog.Debug(ctx).Err(err).Str("variant", variant).Msg("osv lookup failed, trying next variant")
			continue
		}
		if sev := severityFromOSV(rec); sev != nil {
			if err := s.persistOSVSeverity(cve, rec); err != nil {
				zlog.Warn(ctx).Err(err).Msg("failed to persist discovered severity")
			}
			return sev, nil
		}
	}

	return s.nvd.SeverityFallback(ctx, cve)
}

func (s *Store) fetchOSVRecord(ctx context.Context, id string) (osvRecord, error) {
	if cached, err := s.loadOSVFromDisk(id); err == nil {
		return cached, nil
	}
	url := fmt.Sprintf("%s/vulns/%s", DefaultOSVBaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return osvRecord{}, err
	}
	tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req = req.WithContext(tctx)

	resp, err := s.client.Do(req)
	if err != nil {
		return osvRecord{}, &bazbom.Error{Kind: bazbom.ErrTransient, Op: "advisory.fetchOSVRecord", Inner: err}
	}
	defer resp.Body.Close()
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		return osvRecord{}, fmt.Errorf("advisory.fetchOSVRecord: %w", err)
	}

	var rec osvRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return osvRecord{}, &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.fetchOSVRecord", Inner: err}
	}
	return rec, nil
}

func (s *Store) loadOSVFromDisk(id string) (osvRecord, error) {
	b, err := os.ReadFile(s.osvCachePath(id))
	if err != nil {
		return osvRecord{}, err
	}
	var rec osvRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return osvRecord{}, err
	}
	return rec, nil
}

func (s *Store) persistOSVSeverity(cve string, rec osvRecord) error {
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.osvCachePath(cve), b, 0o644)
}

// severityFromOSV extracts a [bazbom.Severity] from an OSV record in the
// order spec'd: CVSS_V3 first, then CVSS_V2 (parsing a numeric score or a
// vector string), falling back to database_specific.severity.
func severityFromOSV(rec osvRecord) *bazbom.Severity {
	for _, typ := range []string{"CVSS_V3", "CVSS_V2"} {
		for _, e := range rec.Severity {
			if e.Type != typ {
				continue
			}
			if score, ok := parseCVSSScoreString(e.Score); ok {
				return &bazbom.Severity{
					Level:    bazbom.LevelFromCVSS(score),
					Score:    score,
					HasScore: true,
					CVSSv3:   cvssv3VectorOrEmpty(typ, e.Score),
				}
			}
		}
	}
	if rec.DatabaseSpecific != nil {
		if raw, ok := rec.DatabaseSpecific["severity"]; ok {
			if s, ok := raw.(string); ok && s != "" {
				if lvl, ok := levelFromQualitativeString(s); ok {
					return &bazbom.Severity{Level: lvl}
				}
			}
		}
	}
	return nil
}

func levelFromQualitativeString(s string) (bazbom.Level, bool) {
	switch strings.ToUpper(s) {
	case "CRITICAL":
		return bazbom.Critical, true
	case "HIGH":
		return bazbom.High, true
	case "MEDIUM", "MODERATE":
		return bazbom.Medium, true
	case "LOW":
		return bazbom.Low, true
	case "NEGLIGIBLE":
		return bazbom.Negligible, true
	default:
		return bazbom.Unknown, false
	}
}

func cvssv3VectorOrEmpty(typ, score string) string {
	if typ == "CVSS_V3" && strings.HasPrefix(score, "CVSS:") {
		return score
	}
	return ""
}

// parseCVSSScoreString handles both a raw numeric score ("7.5") and a
// vector string ("CVSS:3.1/AV:N/AC:L/..."), computing the base score from
// the vector via the formal CVSS algorithm when a vector is given.
func parseCVSSScoreString(s string) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if strings.HasPrefix(s, "CVSS:") {
		if score, err := baseScoreFromVector(s); err == nil {
			return score, true
		}
	}
	return 0, false
}
