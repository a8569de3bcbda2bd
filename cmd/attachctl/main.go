package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/chatattach/internal/cli"
	"github.com/dmitrijs2005/chatattach/internal/config"
	"github.com/dmitrijs2005/chatattach/internal/flagx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close(context.Background())

	args := flagx.Positional(os.Args[1:], config.ValueFlags)
	if len(args) == 0 {
		app.Repl(ctx, os.Stdin)
		return
	}

	if err := app.Exec(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		app.Close(context.Background())
		os.Exit(1)
	}
}
