package main

import (
	"os"

	"blogdigest/pkg/logger"
)

func main() {
	if err := Execute(); err != nil {
		logger.New("blogdigest").Printf("fatal: %v", err)
		os.Exit(1)
	}
}
