package main

import (
	"os"

	"github.com/sonarkit-io/sonarkit/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
