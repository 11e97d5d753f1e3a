// Package main is the entry point for the unitcov CLI.
package main

import "unitcov.dev/pkg/unitcov/cmd"

func main() {
	cmd.Execute()
}
