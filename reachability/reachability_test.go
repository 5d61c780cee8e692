package reachability

import (
	"testing"

	"github.com/bazbom/bazbom"
)

func TestLinkPythonUnderscoreConvention(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{
		{Component: bazbom.Component{Ecosystem: "PyPI", Name: "my-lib"}},
	}
	graph := CallGraph{
		Entrypoints: []string{"app.main"},
		Reachable:   []string{"my_lib.dangerous_function"},
	}
	out := Link(matches, graph)
	if out[0].Reachable == nil || !*out[0].Reachable {
		t.Fatalf("expected reachable=true, got %+v", out[0].Reachable)
	}
	want := []string{"app.main", "my_lib.dangerous_function"}
	if len(out[0].CallChain) != len(want) {
		t.Fatalf("call chain = %v, want %v", out[0].CallChain, want)
	}
}

func TestLinkJavaDottedToSlashConvention(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{
		{Component: bazbom.Component{Ecosystem: "Maven", Namespace: "com.fasterxml.jackson", Name: "jackson-databind"}},
	}
	graph := CallGraph{
		Reachable: []string{"com/fasterxml/jackson/databind/ObjectMapper.readValue"},
	}
	out := Link(matches, graph)
	if out[0].Reachable == nil || !*out[0].Reachable {
		t.Fatal("expected reachable=true for dotted-to-slash match")
	}
}

func TestLinkUnreachable(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{
		{Component: bazbom.Component{Ecosystem: "npm", Name: "lodash"}},
	}
	graph := CallGraph{Reachable: []string{"express.Router"}}
	out := Link(matches, graph)
	if out[0].Reachable == nil || *out[0].Reachable {
		t.Fatal("expected reachable=false")
	}
	if out[0].CallChain != nil {
		t.Errorf("expected no call chain when unreachable, got %v", out[0].CallChain)
	}
}

func TestLinkDedupesChain(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{
		{Component: bazbom.Component{Ecosystem: "Cargo", Name: "serde-json"}},
	}
	graph := CallGraph{
		Entrypoints: []string{"serde_json::from_str", "main"},
		Reachable:   []string{"serde_json::from_str"},
	}
	out := Link(matches, graph)
	if len(out[0].CallChain) != 2 {
		t.Fatalf("call chain = %v, want deduplicated 2-entry chain", out[0].CallChain)
	}
}
