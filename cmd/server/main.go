package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/workshop-scheduler/pkg/app"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(*configPath)
	if err != nil {
		log.Fatalf("could not start: %v", err)
	}
	defer a.Logger.Sync()

	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	a.Logger.Info("server starting", zap.String("addr", addr))
	if err := a.Engine.Run(addr); err != nil {
		a.Logger.Fatal("could not run server", zap.Error(err))
	}
}
