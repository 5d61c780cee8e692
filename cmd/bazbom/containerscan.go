package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/spf13/cobra"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/purl"
)

var containerScanCmd = &cobra.Command{
	Use:   "container-scan <image>",
	Short: "Scan a container image for vulnerable dependencies",
	Args:  cobra.ExactArgs(1),
	RunE:  runContainerScan,
}

func init() {
	rootCmd.AddCommand(containerScanCmd)
}

// syftPath and trivyPath are overridden in tests so the preflight check
// and SBOM generation can be exercised without the real binaries.
var (
	syftPath  = "syft"
	trivyPath = "trivy"
)

func runContainerScan(cmd *cobra.Command, args []string) error {
	image := args[0]

	if err := preflightContainerTools(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	components, err := componentsFromImage(ctx, image)
	if err != nil {
		return fmt.Errorf("generating SBOM for %s: %w", image, err)
	}

	var warnings []string
	matches, suggestions, err := runPipeline(ctx, components, &warnings)
	if err != nil {
		return err
	}

	if err := writeArtifacts(image, components, matches, suggestions, warnings); err != nil {
		return fmt.Errorf("writing artifacts: %w", err)
	}

	matches = applyFilter(matches, filterFlag)

	critical := 0
	for _, m := range matches {
		if m.Priority == bazbom.P0 {
			critical++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scanned %s: %d components, %d findings (%d critical)\n", image, len(components), len(matches), critical)

	if scanFailOnCrit >= 0 && critical > scanFailOnCrit {
		return &policyViolation{message: fmt.Sprintf("%d critical findings exceed threshold %d", critical, scanFailOnCrit)}
	}
	return nil
}

// preflightContainerTools aborts container-scan (but never workspace
// scan) when neither syft nor trivy is on PATH, per spec §7's
// `ToolMissing (syft/trivy)` error kind.
func preflightContainerTools() error {
	if _, err := exec.LookPath(syftPath); err == nil {
		return nil
	}
	if _, err := exec.LookPath(trivyPath); err == nil {
		return nil
	}
	return &configError{message: "container-scan requires syft or trivy on PATH"}
}

// componentsFromImage shells out to syft to produce a CycloneDX SBOM for
// image and decodes it into bazbom.Component values. syft's own image
// pull, layer extraction, and signature verification are exactly the
// "layer provider"/"external SBOM tool" collaborator concerns spec §6
// assigns outside this package's scope.
func componentsFromImage(ctx context.Context, image string) ([]bazbom.Component, error) {
	cmd := exec.CommandContext(ctx, syftPath, image, "-o", "cyclonedx-json")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrTransient, Op: "componentsFromImage", Message: out.String(), Inner: err}
	}

	bom := new(cdx.BOM)
	decoder := cdx.NewBOMDecoder(bytes.NewReader(out.Bytes()), cdx.BOMFileFormatJSON)
	if err := decoder.Decode(bom); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "componentsFromImage", Inner: err}
	}

	var components []bazbom.Component
	if bom.Components != nil {
		for _, c := range *bom.Components {
			ecosystem, namespace := "", c.Group
			if c.PackageURL != "" {
				if eco, ns, _, _, err := purl.Parse(c.PackageURL); err == nil {
					ecosystem, namespace = eco, ns
				}
			}
			components = append(components, bazbom.Component{
				Name:      c.Name,
				Version:   c.Version,
				Ecosystem: ecosystem,
				Namespace: namespace,
				PURL:      c.PackageURL,
				Location:  filepath.Join("image:", image),
			})
		}
	}
	return components, nil
}
