package main

import (
	"context"
	"log"

	"github.com/avolkov/uniadmin/internal/server"
	"github.com/avolkov/uniadmin/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app := server.NewApp(cfg)
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
