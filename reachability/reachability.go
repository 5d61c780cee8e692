// Package reachability implements the reachability linker (C8): it
// consumes an external call-graph report and attaches a reachable
// verdict, plus a deduplicated call chain, onto matches whose package
// shows up (by ecosystem-specific name convention) among the graph's
// reachable function identifiers, per spec §4.8.
package reachability

import (
	"strings"

	"github.com/bazbom/bazbom"
)

// CallGraph is the external reachability analyzer's output: opaque to
// every other component, consumed only here.
type CallGraph struct {
	// Entrypoints are the analysis's root functions, used to build a
	// deduplicated call chain for each reachable match.
	Entrypoints []string `json:"entrypoints"`
	// Reachable lists every function identifier the analyzer proved
	// reachable from an entrypoint.
	Reachable []string `json:"reachable"`
}

// Link attaches {reachable, call_chain} to every match in place, using
// the ecosystem-specific name convention to compare the match's package
// against the graph's reachable function identifiers.
func Link(matches []bazbom.VulnerabilityMatch, graph CallGraph) []bazbom.VulnerabilityMatch {
	for i := range matches {
		linkOne(&matches[i], graph)
	}
	return matches
}

func linkOne(m *bazbom.VulnerabilityMatch, graph CallGraph) {
	var matched string
	for _, fn := range graph.Reachable {
		if packageMatchesFunction(m.Component, fn) {
			matched = fn
			break
		}
	}

	reachable := matched != ""
	m.Reachable = &reachable
	if !reachable {
		return
	}
	m.CallChain = dedupChain(append(append([]string{}, graph.Entrypoints...), matched))
}

// packageMatchesFunction applies the ecosystem-specific naming convention
// from spec §4.8 to decide whether a function identifier belongs to a
// component's package.
func packageMatchesFunction(c bazbom.Component, fn string) bool {
	switch c.Ecosystem {
	case "PyPI":
		return strings.Contains(fn, strings.ReplaceAll(c.Name, "-", "_"))
	case "Maven", "Gradle":
		converted := strings.ReplaceAll(c.Namespace, ".", "/")
		return converted != "" && strings.Contains(fn, converted)
	case "Go":
		return goModulePrefixMatches(c.Name, fn)
	case "Cargo":
		return strings.Contains(fn, strings.ReplaceAll(c.Name, "-", "_"))
	default:
		return strings.Contains(fn, c.Name)
	}
}

// goModulePrefixMatches implements Go's "longest-common package-path
// prefix" convention: fn is considered part of the module when it shares
// every path segment of the module path up to the point the function
// identifier's own path ends (a full import-path match, or a subpackage
// of the module).
func goModulePrefixMatches(modulePath, fn string) bool {
	if modulePath == "" {
		return false
	}
	modSegs := strings.Split(modulePath, "/")
	fnSegs := strings.Split(fn, "/")
	n := len(modSegs)
	if n > len(fnSegs) {
		n = len(fnSegs)
	}
	shared := 0
	for shared < n && modSegs[shared] == fnSegs[shared] {
		shared++
	}
	return shared == len(modSegs) || (shared > 0 && shared == len(fnSegs))
}

// dedupChain concatenates entrypoints with the matched function
// identifier, removing duplicates while preserving first-seen order.
func dedupChain(chain []string) []string {
	seen := make(map[string]bool, len(chain))
	out := make([]string, 0, len(chain))
	for _, id := range chain {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
