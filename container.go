package bazbom

// Layer is one image layer as yielded by a layer provider collaborator,
// ordered oldest-first. Image pull, tar extraction, and signature
// verification are all collaborator concerns outside this package; a
// Layer is just the metadata the scan orchestrator needs to attribute a
// component back to the layer that introduced it.
type Layer struct {
	Digest        string `json:"digest"`
	SizeBytes     int64  `json:"size_bytes"`
	CreateCommand string `json:"create_command,omitempty"`
}

// LayerProvider yields an image's layers oldest-first. Implementations
// wrap whatever pulls and unpacks the image (skopeo, the containerd
// client, a local tarball) — this package never does that itself.
type LayerProvider interface {
	Layers() ([]Layer, error)
}

// PackageLayerMap attributes each resolved component to the digest of
// the layer that introduced it, as reported by an external SBOM tool
// (syft, trivy). A component absent from the map was not attributable
// to a specific layer.
type PackageLayerMap map[string]string
