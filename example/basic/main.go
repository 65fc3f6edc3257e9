// Command basic shows waypost embedded in a host application: a simulated
// sensor pushes samples through a channel while the agent throttles,
// delivers, and buffers them.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nordlicht/waypost"
)

func main() {
	cfg := &waypost.Config{}
	cfg.Collector.BaseURL = "http://localhost:8080"
	cfg.Collector.EntityID = "demo-courier"
	cfg.Buffer.Dir = "./data/queue"
	cfg.ApplyDefaults()

	agent, err := waypost.New(cfg)
	if err != nil {
		log.Fatalf("new agent: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	samples := make(chan waypost.Sample)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return agent.Run(ctx) })
	g.Go(func() error { return agent.Consume(ctx, samples) })
	g.Go(func() error {
		defer close(samples)
		// Walk north along a meridian at ~1.4 m/s.
		lat := 52.5200
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				lat += 0.000025
				samples <- waypost.Sample{
					Latitude:   lat,
					Longitude:  13.4050,
					SpeedMPS:   1.4,
					CapturedAt: time.Now(),
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("agent stopped: %v", err)
	}
}
