package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/bazbom/bazbom"
)

func TestPrintFixTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printFixTable(cmd, nil)
	if got := buf.String(); !strings.Contains(got, "no fixable findings") {
		t.Errorf("expected empty-state message, got %q", got)
	}
}

func TestPrintFixTableListsSuggestions(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	suggestions := []bazbom.RemediationSuggestion{
		{VulnID: "CVE-2021-44228", Package: "log4j-core", CurrentVersion: "2.14.1", FixedVersion: "2.17.1", Priority: bazbom.P0},
	}
	printFixTable(cmd, suggestions)

	got := buf.String()
	if !strings.Contains(got, "CVE-2021-44228") || !strings.Contains(got, "log4j-core") || !strings.Contains(got, "2.17.1") {
		t.Errorf("expected table to contain suggestion details, got %q", got)
	}
}
