package main

import (
	"os"

	"catalog_scraper/presentation/terminal"
)

func main() {
	termInterface := terminal.NewTerminalInterface()

	if err := termInterface.Execute(); err != nil {
		os.Exit(1)
	}
}
