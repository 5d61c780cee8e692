package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
)

// DefaultTTL is the staleness window for a cached feed before a refresh is
// attempted.
const DefaultTTL = 24 * time.Hour

// manifest is the on-disk record of each feed's last successful refresh,
// persisted at <root>/advisories/manifest.json. It is the store's only
// source of "is this feed stale" truth; there is no in-memory singleton.
type manifest struct {
	EPSSRefreshed time.Time `json:"epss_refreshed,omitempty"`
	KEVRefreshed  time.Time `json:"kev_refreshed,omitempty"`
}

// Store is an explicitly-constructed handle onto the filesystem advisory
// cache at <root>/advisories. It is process-wide but never a package-level
// singleton: callers thread one *Store through the pipeline. Writers take
// an exclusive lock during RefreshIfStale; readers afterward see immutable
// snapshots of the in-memory maps.
type Store struct {
	root   string
	client *http.Client
	ttl    time.Duration

	mu   sync.RWMutex
	epss map[string]bazbom.EpssScore
	kev  map[string]bazbom.KevEntry

	nvd *NVDClient
}

// NewStore opens (without yet refreshing) the advisory cache rooted at
// <cacheRoot>/advisories. The directory is created if absent.
func NewStore(cacheRoot string, client *http.Client) (*Store, error) {
	root := filepath.Join(cacheRoot, "advisories")
	if err := os.MkdirAll(filepath.Join(root, "osv"), 0o755); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "advisory.NewStore", Inner: err}
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Store{
		root:   root,
		client: client,
		ttl:    DefaultTTL,
		epss:   make(map[string]bazbom.EpssScore),
		kev:    make(map[string]bazbom.KevEntry),
		nvd:    NewNVDClient(client, ""),
	}, nil
}

// SetTTL overrides the default 24h staleness window, per spec §9's guidance
// that the refresh cadence is a configurable policy, not a baked-in
// constant.
func (s *Store) SetTTL(ttl time.Duration) { s.ttl = ttl }

func (s *Store) manifestPath() string { return filepath.Join(s.root, "manifest.json") }

func (s *Store) readManifest() manifest {
	var m manifest
	b, err := os.ReadFile(s.manifestPath())
	if err != nil {
		return m
	}
	_ = json.Unmarshal(b, &m)
	return m
}

func (s *Store) writeManifest(m manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.manifestPath(), b, 0o644)
}

// RefreshIfStale is the store's only mutator: it re-fetches any feed whose
// manifest timestamp is older than the TTL. A feed's fetch failure never
// fails the call as a whole; it's logged and the store continues serving
// whatever it has cached (possibly nothing, possibly stale).
func (s *Store) RefreshIfStale(ctx context.Context, now time.Time) error {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/Store/RefreshIfStale")
	m := s.readManifest()
	dirty := false

	if now.Sub(m.EPSSRefreshed) > s.ttl {
		if err := s.refreshEPSS(ctx); err != nil {
			zlog.Warn(ctx).Err(err).Msg("epss refresh failed, continuing with stale/empty data")
		} else {
			m.EPSSRefreshed = now
			dirty = true
		}
	} else if err := s.loadEPSSFromDisk(); err != nil {
		zlog.Debug(ctx).Err(err).Msg("no cached epss data yet")
	}

	if now.Sub(m.KEVRefreshed) > s.ttl {
		if err := s.refreshKEV(ctx); err != nil {
			zlog.Warn(ctx).Err(err).Msg("kev refresh failed, continuing with stale/empty data")
		} else {
			m.KEVRefreshed = now
			dirty = true
		}
	} else if err := s.loadKEVFromDisk(); err != nil {
		zlog.Debug(ctx).Err(err).Msg("no cached kev data yet")
	}

	if dirty {
		if err := s.writeManifest(m); err != nil {
			return fmt.Errorf("advisory: write manifest: %w", err)
		}
	}
	return nil
}

// EPSS returns the cached EPSS score for a CVE ID, if any.
func (s *Store) EPSS(cve string) (bazbom.EpssScore, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.epss[cve]
	return v, ok
}

// KEV returns the cached CISA KEV entry for a CVE ID, if any.
func (s *Store) KEV(cve string) (bazbom.KevEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kev[cve]
	return v, ok
}
