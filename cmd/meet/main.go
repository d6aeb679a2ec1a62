package main

import (
	"github.com/dodger215/e-learnig-app/internal/cli"
	"github.com/dodger215/e-learnig-app/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cli.Execute()
}
