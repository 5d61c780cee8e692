// Command bazbom scans polyglot workspaces and container images for
// vulnerable dependencies, prioritizes findings, and can synthesize and
// apply remediations.
package main

import "os"

func main() {
	os.Exit(run())
}

func run() int {
	if err := Execute(); err != nil {
		return exitCodeFor(err)
	}
	return 0
}
