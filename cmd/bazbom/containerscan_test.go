package main

import "testing"

func TestPreflightContainerToolsMissing(t *testing.T) {
	oldSyft, oldTrivy := syftPath, trivyPath
	defer func() { syftPath, trivyPath = oldSyft, oldTrivy }()

	syftPath = "definitely-not-a-real-binary-bazbom-test"
	trivyPath = "also-not-a-real-binary-bazbom-test"

	if err := preflightContainerTools(); err == nil {
		t.Fatal("expected an error when neither syft nor trivy is on PATH")
	}
	if _, ok := interface{}(preflightErr()).(*configError); !ok {
		t.Fatal("expected preflight failure to be a configError")
	}
}

func preflightErr() error {
	return preflightContainerTools()
}

func TestPreflightContainerToolsFindsSyft(t *testing.T) {
	oldSyft, oldTrivy := syftPath, trivyPath
	defer func() { syftPath, trivyPath = oldSyft, oldTrivy }()

	// "sh" stands in for syft here: preflightContainerTools only checks
	// PATH resolution, not that the binary is actually syft/trivy.
	syftPath = "sh"
	trivyPath = "also-not-a-real-binary-bazbom-test"

	if err := preflightContainerTools(); err != nil {
		t.Fatalf("expected preflight to succeed when syft (stand-in) resolves, got %v", err)
	}
}
