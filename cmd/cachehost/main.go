// Command cachehost runs a cache orchestrator behind a health endpoint.
//
// It keeps a product catalog, exchange rates and derived prices warm,
// plus daily revenue when ClickHouse is configured, and publishes status
// transitions to Kafka when an events section is present.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "cachehost: %v\n", err)
		os.Exit(1)
	}
}
