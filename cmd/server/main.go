package main

import (
	"context"
	"log"
	"os"

	"github.com/vkulagin/authgate/internal/buildinfo"
	"github.com/vkulagin/authgate/internal/server"
	"github.com/vkulagin/authgate/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := server.NewApp(cfg)

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
