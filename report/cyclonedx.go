package report

import (
	"bytes"
	"io"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/bazbom/bazbom"
)

// CycloneDXEncoder writes a scan result as a CycloneDX 1.5 JSON
// document, per spec §6's `sbom/cyclonedx.json` output.
type CycloneDXEncoder struct {
	// SerialNumber, when set, is used verbatim as the document's urn;
	// left empty, the document carries no serial number.
	SerialNumber string
}

// Encode renders components as a CycloneDX 1.5 JSON BOM.
func (e *CycloneDXEncoder) Encode(components []bazbom.Component) (io.Reader, error) {
	bom := cdx.NewBOM()
	bom.SerialNumber = e.SerialNumber
	specVersion := cdx.SpecVersion1_5
	bom.SpecVersion = specVersion

	cdxComponents := make([]cdx.Component, 0, len(components))
	for _, c := range components {
		cdxComponents = append(cdxComponents, componentToCDX(c))
	}
	bom.Components = &cdxComponents

	buf := &bytes.Buffer{}
	encoder := cdx.NewBOMEncoder(buf, cdx.BOMFileFormatJSON)
	encoder.SetPretty(true)
	if err := encoder.Encode(bom); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "report.CycloneDXEncoder.Encode", Inner: err}
	}
	return buf, nil
}

func componentToCDX(c bazbom.Component) cdx.Component {
	comp := cdx.Component{
		Type:       cdx.ComponentTypeLibrary,
		Name:       c.Name,
		Version:    c.Version,
		PackageURL: c.PURL,
	}
	if c.Namespace != "" {
		comp.Group = c.Namespace
	}
	if c.License != "" {
		comp.Licenses = &cdx.Licenses{
			cdx.LicenseChoice{License: &cdx.License{Name: c.License}},
		}
	}
	return comp
}
