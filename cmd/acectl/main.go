// Package main is the entry point of acectl, the operator CLI for weekly ACE snapshots.
package main

import (
	"os"

	"github.com/formicag/ACEReportHub/cmd/acectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
