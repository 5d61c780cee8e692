// Package gomod parses Go module dependency graphs: go.sum (the source
// of truth for resolved versions, including transitive deps) and go.mod
// (direct requirements only, when go.sum is absent).
//
// go.mod/go.sum have a simple, stable line grammar of their own; no
// library in the retrieval pack parses them, so this package reads them
// directly off the standard library's text-scanning primitives rather
// than importing an unrelated ecosystem's TOML/YAML/JSON parser for a
// format those can't read anyway.
package gomod

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "Go"

// Scanner implements [ecosystem.Parser] for Go modules.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	return err == nil
}

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/gomod/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	sumPath := filepath.Join(root, "go.sum")
	if _, err := os.Stat(sumPath); err == nil {
		if err := parseGoSum(sumPath, &result); err != nil {
			result.Warnings = append(result.Warnings, "go.sum: "+err.Error())
		}
		zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
		return result, nil
	}

	if err := parseGoMod(filepath.Join(root, "go.mod"), &result); err != nil {
		result.Warnings = append(result.Warnings, "go.mod: "+err.Error())
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

// parseGoSum reads go.sum's "module version hash" lines, skipping the
// paired "/go.mod" checksum entries so each module version is emitted
// once.
func parseGoSum(path string, result *bazbom.EcosystemScanResult) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reg := purl.NewRegistry()
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		module, version := fields[0], fields[1]
		if strings.HasSuffix(version, "/go.mod") {
			continue
		}
		key := module + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true

		namespace, name := splitModulePath(module)
		p, _ := reg.Generate(ecosystemName, namespace, name, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      name,
			Version:   version,
			Ecosystem: ecosystemName,
			Namespace: namespace,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return sc.Err()
}

// parseGoMod reads the require(...) block (and bare top-level require
// lines) of a go.mod file. Versions are direct-only with no transitive
// closure, matching §4.3 rule 1's manifest-only fallback.
func parseGoMod(path string, result *bazbom.EcosystemScanResult) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reg := purl.NewRegistry()
	inBlock := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		switch {
		case line == "require (":
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case inBlock:
			addRequireLine(line, result, reg)
		case strings.HasPrefix(line, "require "):
			addRequireLine(strings.TrimPrefix(line, "require "), result, reg)
		}
	}
	return sc.Err()
}

func addRequireLine(line string, result *bazbom.EcosystemScanResult, reg *purl.Registry) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	module, version := fields[0], fields[1]
	namespace, name := splitModulePath(module)
	p, _ := reg.Generate(ecosystemName, namespace, name, version)
	result.Components = append(result.Components, bazbom.Component{
		Name:      name,
		Version:   version,
		Ecosystem: ecosystemName,
		Namespace: namespace,
		PURL:      p,
		Location:  result.Root,
	})
}

// splitModulePath splits a Go module path into (namespace, name) at its
// last path segment, so "github.com/spf13/cobra" becomes
// ("github.com/spf13", "cobra").
func splitModulePath(module string) (namespace, name string) {
	idx := strings.LastIndex(module, "/")
	if idx < 0 {
		return "", module
	}
	return module[:idx], module[idx+1:]
}
