// Command snest drives the nesting engine from a terminal: a cobra
// root command with nest, serve, and version subcommands.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
