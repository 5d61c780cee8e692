package report

import (
	"bytes"
	"io"
	"sort"
	"strconv"
	"time"

	spdxjson "github.com/spdx/tools-golang/json"
	v2common "github.com/spdx/tools-golang/spdx/v2/common"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"

	"github.com/bazbom/bazbom"
)

// SPDXEncoder writes a scan result as an SPDX 2.3 JSON document, per
// spec §6's `sbom/spdx.json` output.
type SPDXEncoder struct {
	DocumentName      string
	DocumentNamespace string
	Creators          []Creator
}

// Creator is one SPDX document creator entry.
type Creator struct {
	Name string
	// Type is one of "Person", "Organization", or "Tool", per the SPDX
	// v2 spec.
	Type string
}

// Encode renders components as an SPDX 2.3 JSON document.
func (e *SPDXEncoder) Encode(components []bazbom.Component) (io.Reader, error) {
	doc := e.toDocument(components)
	buf := &bytes.Buffer{}
	if err := spdxjson.Write(doc, buf); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "report.SPDXEncoder.Encode", Inner: err}
	}
	return buf, nil
}

func (e *SPDXEncoder) toDocument(components []bazbom.Component) *v2_3.Document {
	creators := make([]v2common.Creator, len(e.Creators))
	for i, c := range e.Creators {
		creators[i] = v2common.Creator{Creator: c.Name, CreatorType: c.Type}
	}

	doc := &v2_3.Document{
		SPDXVersion:       v2_3.Version,
		DataLicense:       v2_3.DataLicense,
		SPDXIdentifier:    "DOCUMENT",
		DocumentName:      e.DocumentName,
		DocumentNamespace: e.DocumentNamespace,
		CreationInfo: &v2_3.CreationInfo{
			Creators: creators,
			Created:  time.Now().Format("2006-01-02T15:04:05Z"),
		},
	}

	// Sorted so the document is deterministic across runs of the same
	// scan, independent of the scanner's internal collection order.
	sorted := append([]bazbom.Component{}, components...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Ecosystem != sorted[j].Ecosystem {
			return sorted[i].Ecosystem < sorted[j].Ecosystem
		}
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Version < sorted[j].Version
	})

	for i, c := range sorted {
		doc.Packages = append(doc.Packages, packageFromComponent(i, c))
	}
	return doc
}

func packageFromComponent(index int, c bazbom.Component) *v2_3.Package {
	pkg := &v2_3.Package{
		PackageName:             c.Name,
		PackageSPDXIdentifier:   v2common.ElementID(spdxElementID(index)),
		PackageVersion:          c.Version,
		PackageDownloadLocation: "NOASSERTION",
		FilesAnalyzed:           false,
		PrimaryPackagePurpose:   "LIBRARY",
	}
	if c.License != "" {
		pkg.PackageLicenseDeclared = c.License
	} else {
		pkg.PackageLicenseDeclared = "NOASSERTION"
	}
	if c.PURL != "" {
		pkg.PackageExternalReferences = []*v2_3.PackageExternalReference{{
			Category: "PACKAGE-MANAGER",
			RefType:  "purl",
			Locator:  c.PURL,
		}}
	}
	return pkg
}

func spdxElementID(index int) string {
	return "SPDXRef-Package-" + strconv.Itoa(index)
}
