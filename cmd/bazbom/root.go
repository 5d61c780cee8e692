package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	outDir     string
	cacheDir   string
	filterFlag string
)

var rootCmd = &cobra.Command{
	Use:   "bazbom",
	Short: "Polyglot software composition analysis",
	Long: `bazbom scans polyglot workspaces and container images for
vulnerable dependencies, scores findings by exploit likelihood and
reachability, and can synthesize and apply remediations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", ".", "output directory for scan artifacts")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "advisory cache root")
	rootCmd.PersistentFlags().StringVar(&filterFlag, "filter", "", "narrow displayed findings: p0|p1|p2|critical|high|medium|low|kev|fixable|quick-wins")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func defaultCacheDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.cache/bazbom"
	}
	return ".bazbom-cache"
}

// policyViolation signals exit code 2: a scan completed successfully but
// found critical vulnerabilities above the configured threshold.
type policyViolation struct{ message string }

func (e *policyViolation) Error() string { return e.message }

// configError signals exit code 3: the CLI invocation itself was
// malformed (bad flags, unreadable target) before any scan ran.
type configError struct{ message string }

func (e *configError) Error() string { return e.message }

// exitCodeFor maps a command error to one of spec §6's CLI exit codes:
// 0 success, 1 unhandled error, 2 policy violation, 3 configuration
// error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err)
	var pv *policyViolation
	var ce *configError
	switch {
	case asPolicyViolation(err, &pv):
		return 2
	case asConfigError(err, &ce):
		return 3
	default:
		return 1
	}
}

func asPolicyViolation(err error, target **policyViolation) bool {
	if pv, ok := err.(*policyViolation); ok {
		*target = pv
		return true
	}
	return false
}

func asConfigError(err error, target **configError) bool {
	if ce, ok := err.(*configError); ok {
		*target = ce
		return true
	}
	return false
}

