package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/i474232898/nws-weather/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.New(version).ExecuteContext(ctx); err != nil {
		log.Printf("exec: %s", err)
		stop()
		os.Exit(1)
	}
}
