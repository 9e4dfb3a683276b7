// The main package for the mapharvest executable.
package main

import (
	"os"
)

// main is the entry point of the application. It defers all execution to
// the Cobra CLI library.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
