// Command strata is the CLI entrypoint: it defers entirely to
// internal/commandline for flag parsing and verb dispatch.
package main

import (
	"fmt"
	"os"

	"evalgo.org/strata/internal/commandline"
)

func main() {
	if err := commandline.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
