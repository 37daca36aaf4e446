package main

import (
	"context"
	"fmt"
	"os"

	"novapos/internal/app"
	"novapos/internal/config"
	"novapos/internal/logging"
)

func main() {
	open := func(ctx context.Context) (*app.Runtime, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger, err := logging.New("warn")
		if err != nil {
			return nil, err
		}
		return app.Open(ctx, cfg, logger)
	}

	if err := newRootCmd(open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
