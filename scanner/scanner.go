// Package scanner implements the scan orchestrator: it detects every
// ecosystem present under a root directory by probing marker files, then
// dispatches each detected ecosystem's parser concurrently with bounded
// parallelism, merging their results into one polyglot scan.
package scanner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quay/zlog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/ecosystem/bazel"
	"github.com/bazbom/bazbom/ecosystem/cargo"
	"github.com/bazbom/bazbom/ecosystem/composer"
	"github.com/bazbom/bazbom/ecosystem/gomod"
	"github.com/bazbom/bazbom/ecosystem/gradle"
	"github.com/bazbom/bazbom/ecosystem/maven"
	"github.com/bazbom/bazbom/ecosystem/npm"
	"github.com/bazbom/bazbom/ecosystem/pypi"
	"github.com/bazbom/bazbom/ecosystem/rubygems"
)

// Options controls scan behavior, per spec.md §4.4's exposed contract.
type Options struct {
	EnableReachability    bool
	EnableVulnerabilities bool
	// MaxConcurrent bounds how many parsers run at once. Zero means the
	// logical CPU count, per §4.4's stated default.
	MaxConcurrent int
	ShowProgress  bool
}

var (
	scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazbom",
		Subsystem: "scan",
		Name:      "ecosystems_total",
		Help:      "Ecosystem parsers dispatched by the scan orchestrator, by ecosystem and outcome.",
	}, []string{"ecosystem", "outcome"})
	scanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bazbom",
		Subsystem: "scan",
		Name:      "ecosystem_duration_seconds",
		Help:      "Wall-clock time to scan one detected ecosystem.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"ecosystem"})
)

func init() {
	prometheus.MustRegister(scansTotal, scanDuration)
}

// parsers returns one instance of every supported ecosystem parser, in
// the fixed order spec.md §4.3 lists them.
func parsers() []ecosystem.Parser {
	return []ecosystem.Parser{
		npm.New(),
		pypi.New(),
		maven.New(),
		gradle.New(),
		bazel.New(),
		gomod.New(),
		cargo.New(),
		rubygems.New(),
		composer.New(),
	}
}

// Scan detects every ecosystem present under root and runs their parsers
// concurrently, bounded by opts.MaxConcurrent (or GOMAXPROCS when zero).
// One parser's failure does not halt the others; its error is recorded as
// a Warning on an empty result for that ecosystem instead, since a
// partial scan is more useful to the caller than none at all.
func Scan(ctx context.Context, root string, opts Options) ([]bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "scanner/Scan", "root", root)

	all := parsers()
	var detected []ecosystem.Parser
	for _, p := range all {
		if p.Detect(root) {
			detected = append(detected, p)
		}
	}
	zlog.Info(ctx).Int("detected", len(detected)).Msg("ecosystem detection complete")
	if len(detected) == 0 {
		return nil, nil
	}

	lim := opts.MaxConcurrent
	if lim <= 0 {
		lim = runtime.GOMAXPROCS(0)
	}

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(len(detected)), "scanning")
	}

	cache := ecosystem.NewLicenseCache()
	results := make([]bazbom.EcosystemScanResult, len(detected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lim)
	for i, p := range detected {
		i, p := i, p
		g.Go(func() error {
			start := time.Now()
			res, err := p.Scan(gctx, root, cache)
			scanDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				scansTotal.WithLabelValues(p.Name(), "error").Inc()
				zlog.Warn(gctx).Err(err).Str("ecosystem", p.Name()).Msg("parser failed")
				res = bazbom.EcosystemScanResult{
					Ecosystem: p.Name(),
					Root:      root,
					Warnings:  []string{fmt.Sprintf("parser error: %v", err)},
				}
			} else {
				scansTotal.WithLabelValues(p.Name(), "ok").Inc()
			}
			results[i] = res
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
