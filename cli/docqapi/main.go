package main

import (
	"os"

	servecmder "github.com/papercomputeco/docq/cmd/docq/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "docqapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .docq/ config directory")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
