package main

import (
	"os"

	docqcmder "github.com/papercomputeco/docq/cmd/docq"
)

func main() {
	cmd := docqcmder.NewDocqCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
