package main

import (
	"schedshare/core/logger"
	"schedshare/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
