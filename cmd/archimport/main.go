// # cmd/archimport/main.go
package main

import (
	"os"

	"archimport/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
