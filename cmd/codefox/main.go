package main

import (
	"os"

	"github.com/dshills/codefox/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
