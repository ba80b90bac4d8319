package main

import (
	"os"

	"github.com/majorcontext/ghauth/cmd/ghauth/cli"
)

func main() {
	os.Exit(cli.Execute())
}
