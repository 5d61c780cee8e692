package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/internal/httputil"
)

// DefaultKEVFeed is the CISA Known Exploited Vulnerabilities catalog URL.
const DefaultKEVFeed = `https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json`

// kevRoot mirrors the CISA KEV JSON schema.
type kevRoot struct {
	CatalogVersion  string          `json:"catalogVersion"`
	Count           int             `json:"count"`
	Vulnerabilities []kevCatalogRow `json:"vulnerabilities"`
}

type kevCatalogRow struct {
	CVEID          string `json:"cveID"`
	VendorProject  string `json:"vendorProject"`
	Product        string `json:"product"`
	DateAdded      string `json:"dateAdded"`
	DueDate        string `json:"dueDate"`
	RequiredAction string `json:"requiredAction"`
}

func (s *Store) kevCachePath() string { return filepath.Join(s.root, "kev.json") }

// refreshKEV fetches the CISA KEV catalog to the on-disk cache and loads it
// into the in-memory map.
func (s *Store) refreshKEV(ctx context.Context) error {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/Store/refreshKEV")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DefaultKEVFeed, nil)
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.refreshKEV", Inner: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrTransient, Op: "advisory.refreshKEV", Message: "fetching KEV feed", Inner: err}
	}
	defer resp.Body.Close()
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		return fmt.Errorf("advisory.refreshKEV: %w", err)
	}

	raw, err := os.Create(s.kevCachePath())
	if err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.refreshKEV", Inner: err}
	}
	defer raw.Close()

	var root kevRoot
	if err := json.NewDecoder(io.TeeReader(resp.Body, raw)).Decode(&root); err != nil {
		return &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "advisory.refreshKEV", Inner: err}
	}

	m := kevRowsToMap(root.Vulnerabilities)
	s.mu.Lock()
	s.kev = m
	s.mu.Unlock()
	zlog.Info(ctx).Int("count", len(m)).Msg("refreshed KEV cache")
	return nil
}

func kevRowsToMap(rows []kevCatalogRow) map[string]bazbom.KevEntry {
	m := make(map[string]bazbom.KevEntry, len(rows))
	for _, v := range rows {
		added, _ := time.Parse("2006-01-02", v.DateAdded)
		due, _ := time.Parse("2006-01-02", v.DueDate)
		m[v.CVEID] = bazbom.KevEntry{
			CVEID:          v.CVEID,
			Vendor:         v.VendorProject,
			Product:        v.Product,
			DateAdded:      added,
			DueDate:        due,
			RequiredAction: v.RequiredAction,
		}
	}
	return m
}

func (s *Store) loadKEVFromDisk() error {
	b, err := os.ReadFile(s.kevCachePath())
	if err != nil {
		return err
	}
	var root kevRoot
	if err := json.Unmarshal(b, &root); err != nil {
		return err
	}
	s.mu.Lock()
	s.kev = kevRowsToMap(root.Vulnerabilities)
	s.mu.Unlock()
	return nil
}
