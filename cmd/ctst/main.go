// Package main provides the entry point for the ctst CLI.
package main

import (
	"os"

	"github.com/containust/containust/internal/cli"
	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/isolation/native"
)

func main() {
	native.MaybeRunAsInit()

	if err := cli.Execute(); err != nil {
		os.Exit(ctsterr.ExitCode(err))
	}
}
