package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/time/rate"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/internal/httputil"
)

// DefaultNVDBaseURL is the NVD CVE 2.0 REST API.
const DefaultNVDBaseURL = `https://services.nvd.nist.gov/rest/json/cves/2.0`

// NVDClient is the last-resort severity source when OSV has nothing for a
// CVE. It honors NVD's public rate limit (5 requests / 30s without an API
// key, 50/30s with one) via a token-bucket limiter rather than a fixed
// sleep, so a small scan isn't penalized by a worst-case 30s pause.
type NVDClient struct {
	client  *http.Client
	apiKey  string
	limiter *rate.Limiter
}

// NewNVDClient builds a client. An empty apiKey uses the unauthenticated
// rate limit.
func NewNVDClient(client *http.Client, apiKey string) *NVDClient {
	lim := newNVDLimiter()
	if apiKey != "" {
		lim = newNVDLimiterWithKey()
	}
	return &NVDClient{client: client, apiKey: apiKey, limiter: lim}
}

type nvdResponse struct {
	Vulnerabilities []struct {
		CVE struct {
			ID      string `json:"id"`
			Metrics struct {
				CVSSMetricV31 []nvdCVSSMetric `json:"cvssMetricV31"`
				CVSSMetricV30 []nvdCVSSMetric `json:"cvssMetricV30"`
				CVSSMetricV2  []nvdCVSSMetric `json:"cvssMetricV2"`
			} `json:"metrics"`
		} `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVSSMetric struct {
	CVSSData struct {
		BaseScore float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// SeverityFallback queries NVD for one CVE, preferring CVSS v3.1 over
// v3.0 over v2 when more than one is present, per spec §9.
func (c *NVDClient) SeverityFallback(ctx context.Context, cve string) (*bazbom.Severity, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/NVDClient/SeverityFallback", "cve", cve)
	if err := waitToken(ctx, c.limiter); err != nil {
		return nil, fmt.Errorf("advisory: nvd rate limiter: %w", err)
	}

	url := fmt.Sprintf("%s?cveId=%s", DefaultNVDBaseURL, cve)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}
	tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req = req.WithContext(tctx)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrTransient, Op: "advisory.NVDClient.SeverityFallback", Inner: err}
	}
	defer resp.Body.Close()
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("advisory.NVDClient.SeverityFallback: %w", err)
	}

	var data nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.NVDClient.SeverityFallback", Inner: err}
	}

	for _, v := range data.Vulnerabilities {
		if v.CVE.ID != cve {
			continue
		}
		var score float64
		var has bool
		switch {
		case len(v.CVE.Metrics.CVSSMetricV31) > 0:
			score, has = v.CVE.Metrics.CVSSMetricV31[0].CVSSData.BaseScore, true
		case len(v.CVE.Metrics.CVSSMetricV30) > 0:
			score, has = v.CVE.Metrics.CVSSMetricV30[0].CVSSData.BaseScore, true
		case len(v.CVE.Metrics.CVSSMetricV2) > 0:
			score, has = v.CVE.Metrics.CVSSMetricV2[0].CVSSData.BaseScore, true
		}
		if has {
			return &bazbom.Severity{Level: bazbom.LevelFromCVSS(score), Score: score, HasScore: true}, nil
		}
	}
	return nil, nil
}

// BatchSeverityFallback resolves severities for multiple CVEs, honoring
// the rate limiter across the whole batch rather than sleeping a fixed
// interval between groups of 5 — the limiter already enforces the
// equivalent cadence per call.
func (c *NVDClient) BatchSeverityFallback(ctx context.Context, cves []string) map[string]*bazbom.Severity {
	out := make(map[string]*bazbom.Severity, len(cves))
	for _, cve := range cves {
		sev, err := c.SeverityFallback(ctx, cve)
		if err != nil {
			zlog.Debug(ctx).Err(err).Str("cve", cve).Msg("nvd fallback failed")
			continue
		}
		if sev != nil {
			out[cve] = sev
		}
	}
	return out
}
