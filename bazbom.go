// Package bazbom defines the core data model shared by BazBOM's analysis
// pipeline: ecosystem detection, dependency extraction, vulnerability
// matching, enrichment, priority scoring, and remediation synthesis.
//
// The types here are intentionally free of I/O. Network access and
// filesystem mutation are confined to the advisory and apply packages;
// everything in this package is a pure value type produced and consumed
// by the pipeline stages.
package bazbom
