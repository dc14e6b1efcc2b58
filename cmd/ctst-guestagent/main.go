// Package main is the entry point for ctst-guestagent, the minimal
// binary that runs inside containust's VM-mediated backend guest.
package main

import (
	"fmt"
	"os"

	"github.com/containust/containust/internal/guestagent"
)

func main() {
	if err := guestagent.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
