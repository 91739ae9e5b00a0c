package main

import (
	"os"

	"github.com/marcelocantos/vortex/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
