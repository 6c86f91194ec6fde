package main

import (
	"os"

	"github.com/getcharzp/go-mobilesam/cmd/mobilesam/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
