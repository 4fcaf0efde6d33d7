// Command activitylog consumes reservation and attendance events from the
// activity queue and appends them to a log file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/neighborhood-exchange/internal/config"
	"github.com/iliyamo/neighborhood-exchange/internal/logging"
	"github.com/iliyamo/neighborhood-exchange/internal/queue"
)

func main() {
	_ = godotenv.Load()
	logging.Configure(os.Getenv("LOG_LEVEL"), nil)

	cfg := config.LoadAMQPConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.URL, Queue: cfg.Queue, Dir: cfg.LogDir}
	logging.Info("activitylog starting", "queue", cfg.Queue, "dir", cfg.LogDir)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error("activitylog stopped", err)
		os.Exit(1)
	}
}
