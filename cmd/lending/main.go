package main

import (
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/adpadillar/software-architecture-library/lending/app"
	"github.com/adpadillar/software-architecture-library/lending/config"
)

// @title       Lending API
// @version     1.0
// @description Lending of books and laptops.
// @BasePath    /api/v1
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", err)
	}
	cfg := config.NewConfig(
		config.WithLogLevel(zapcore.DebugLevel),
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
