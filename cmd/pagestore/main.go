// Command pagestore is a thin driver over the storage and bufferpool
// packages: enough of a CLI to create a page file and exercise a buffer
// pool end to end, nothing more. The storage engine itself is a library;
// this binary is ambient tooling around it, not part of its contract.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
