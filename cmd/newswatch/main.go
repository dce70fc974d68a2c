package main

import (
	"newswatch/cmd/cmd"
	"newswatch/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
