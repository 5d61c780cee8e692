// Package maven parses Maven dependency manifests (pom.xml). Maven has
// no native lockfile; per spec.md §4.3 the parser reads the pom as given,
// which is direct-only (no post-resolution reconciliation against a
// dependency tree).
package maven

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "Maven"

// Scanner implements [ecosystem.Parser] for Maven.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "pom.xml"))
	return err == nil
}

type pomXML struct {
	Properties   pomProperties  `xml:"properties"`
	Dependencies pomDepListXML  `xml:"dependencies"`
}

type pomProperties struct {
	XMLName xml.Name   `xml:"properties"`
	Entries []pomEntry `xml:",any"`
}

type pomEntry struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomDepListXML struct {
	Dependency []pomDependency `xml:"dependency"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/maven/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	b, err := os.ReadFile(filepath.Join(root, "pom.xml"))
	if err != nil {
		result.Warnings = append(result.Warnings, "pom.xml: "+err.Error())
		return result, nil
	}
	var pom pomXML
	if err := xml.Unmarshal(b, &pom); err != nil {
		result.Warnings = append(result.Warnings, "pom.xml: "+err.Error())
		return result, nil
	}

	props := make(map[string]string, len(pom.Properties.Entries))
	for _, e := range pom.Properties.Entries {
		props[e.XMLName.Local] = e.Value
	}

	reg := purl.NewRegistry()
	for _, dep := range pom.Dependencies.Dependency {
		version := resolveProperty(dep.Version, props)
		if dep.ArtifactID == "" || version == "" {
			continue
		}
		p, _ := reg.Generate(ecosystemName, dep.GroupID, dep.ArtifactID, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      dep.ArtifactID,
			Version:   version,
			Ecosystem: ecosystemName,
			Namespace: dep.GroupID,
			PURL:      p,
			Location:  root,
		})
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

// resolveProperty expands a single "${prop.name}" reference against the
// pom's <properties> block; unresolvable or literal versions pass through
// unchanged.
func resolveProperty(version string, props map[string]string) string {
	if !strings.HasPrefix(version, "${") || !strings.HasSuffix(version, "}") {
		return version
	}
	key := strings.TrimSuffix(strings.TrimPrefix(version, "${"), "}")
	if v, ok := props[key]; ok {
		return v
	}
	return version
}
