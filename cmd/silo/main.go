// Package main provides the entry point for the silo CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/silo/cmd/silo/cmd"
	silerrors "github.com/Aman-CERP/silo/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, silerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
