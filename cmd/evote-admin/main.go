package main

import (
	"context"
	"log"
	"os"

	"github.com/ingenieros-gt/evote/internal/admin/cli"
	"github.com/ingenieros-gt/evote/internal/flagx"
	"github.com/ingenieros-gt/evote/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, flagx.Positional(os.Args[1:], config.ValueFlags))
	_ = app.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}

}
