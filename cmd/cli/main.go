package main

import (
	"context"
	"log"
	"os"

	"github.com/vkulagin/authgate/internal/buildinfo"
	"github.com/vkulagin/authgate/internal/cli"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	app := cli.NewApp(os.Stdin, os.Stdout)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
