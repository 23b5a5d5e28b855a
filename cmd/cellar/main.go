package main

import (
	"os"

	cmd "github.com/MrSnakeDoc/cellar/internal"
	"github.com/MrSnakeDoc/cellar/internal/logger"
	"github.com/MrSnakeDoc/cellar/internal/middleware"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !middleware.Logged(err) {
			logger.LogError("%v", err)
		}
		os.Exit(1)
	}
}
