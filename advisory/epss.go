package advisory

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"context"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/internal/httputil"
)

// DefaultEPSSBaseURL is the default place to look for EPSS feeds; a daily
// epss_scores-YYYY-MM-DD.csv.gz lives under this root.
const DefaultEPSSBaseURL = `https://epss.cyentia.com/`

func currentEPSSFeedURL() string {
	yesterday := time.Now().AddDate(0, 0, -1)
	filePath := fmt.Sprintf("epss_scores-%s.csv.gz", yesterday.Format("2006-01-02"))
	u, err := url.Parse(DefaultEPSSBaseURL)
	if err != nil {
		panic(fmt.Errorf("advisory: invalid default EPSS base URL: %w", err))
	}
	u.Path = path.Join(u.Path, filePath)
	return u.String()
}

func (s *Store) epssCachePath() string { return filepath.Join(s.root, "epss.csv") }

// refreshEPSS fetches the daily EPSS CSV feed, decodes it to the on-disk
// cache, and loads it into the in-memory map.
func (s *Store) refreshEPSS(ctx context.Context) error {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/Store/refreshEPSS")

	feedURL := currentEPSSFeedURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.refreshEPSS", Inner: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrTransient, Op: "advisory.refreshEPSS", Message: "fetching EPSS feed", Inner: err}
	}
	defer resp.Body.Close()
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		return fmt.Errorf("advisory.refreshEPSS: %w", err)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.refreshEPSS", Inner: err}
	}
	defer gz.Close()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	// First line is a "#model_version:..,score_date:.." metadata comment.
	if _, err := r.Read(); err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.refreshEPSS", Message: "missing metadata line", Inner: err}
	}
	r.Comment = '#'
	r.FieldsPerRecord = 3
	header, err := r.Read()
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.refreshEPSS", Message: "missing header line", Inner: err}
	}
	if !slices.Equal(header, []string{"cve", "epss", "percentile"}) {
		return &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.refreshEPSS", Message: fmt.Sprintf("unexpected CSV header: %v", header)}
	}

	out, err := os.Create(s.epssCachePath())
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.refreshEPSS", Inner: err}
	}
	defer out.Close()
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}

	m := make(map[string]bazbom.EpssScore)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			zlog.Warn(ctx).Err(err).Msg("skipping invalid EPSS record")
			continue
		}
		score, pct, err := parseEPSSRecord(record)
		if err != nil {
			zlog.Warn(ctx).Err(err).Msg("skipping invalid EPSS record")
			continue
		}
		m[record[0]] = bazbom.EpssScore{Score: score, Percentile: pct}
		_ = w.Write(record)
	}
	w.Flush()

	s.mu.Lock()
	s.epss = m
	s.mu.Unlock()
	zlog.Info(ctx).Int("count", len(m)).Msg("refreshed EPSS cache")
	return nil
}

func parseEPSSRecord(record []string) (score, percentile float64, err error) {
	if len(record) != 3 {
		return 0, 0, fmt.Errorf("advisory: unexpected EPSS record length %d", len(record))
	}
	score, err = strconv.ParseFloat(record[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("advisory: invalid EPSS score: %w", err)
	}
	percentile, err = strconv.ParseFloat(record[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("advisory: invalid EPSS percentile: %w", err)
	}
	return score, percentile, nil
}

func (s *Store) loadEPSSFromDisk() error {
	f, err := os.Open(s.epssCachePath())
	if err != nil {
		return err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	if _, err := r.Read(); err != nil { // header
		return err
	}
	m := make(map[string]bazbom.EpssScore)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		score, pct, err := parseEPSSRecord(record)
		if err != nil {
			continue
		}
		m[record[0]] = bazbom.EpssScore{Score: score, Percentile: pct}
	}
	s.mu.Lock()
	s.epss = m
	s.mu.Unlock()
	return nil
}
