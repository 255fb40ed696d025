// Command slurmctl is a command-line client for the Slurm REST API.
package main

import (
	"os"

	"github.com/slurmsdk/slurm-go-sdk/internal/cli"
)

func main() {
	if err := cli.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
