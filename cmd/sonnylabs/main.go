package main

import (
	"os"

	"github.com/sonnylabs/sonnylabs-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
