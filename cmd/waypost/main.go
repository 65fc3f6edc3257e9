package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nordlicht/waypost"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "queue":
		err = queueCommand(os.Args[2:])
	case "send":
		err = sendCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("waypost %s: %v", cmd, err)
	}
}

// runCommand starts the agent and feeds it samples read as JSON lines from
// stdin, one object per line:
//
//	{"lat":52.52,"lon":13.405,"speed":1.2,"accuracy":8,"capturedAt":"2026-03-01T12:00:00Z"}
//
// capturedAt defaults to the arrival time when omitted. Malformed lines are
// logged and skipped.
func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./waypost.yaml", "Path to agent configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := waypost.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	agent, err := waypost.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	samples := make(chan waypost.Sample)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(samples)
		return readSamples(ctx, os.Stdin, samples)
	})
	g.Go(func() error {
		return agent.Consume(ctx, samples)
	})
	g.Go(func() error {
		return agent.Run(ctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type sampleLine struct {
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Speed      float64    `json:"speed"`
	Accuracy   float64    `json:"accuracy"`
	CapturedAt *time.Time `json:"capturedAt"`
}

func readSamples(ctx context.Context, r io.Reader, out chan<- waypost.Sample) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var line sampleLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			// One garbled line must not end the whole source.
			log.Printf("skipping malformed sample line: %v", err)
			continue
		}
		capturedAt := time.Now()
		if line.CapturedAt != nil {
			capturedAt = *line.CapturedAt
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- waypost.Sample{
			Latitude:       line.Lat,
			Longitude:      line.Lon,
			SpeedMPS:       line.Speed,
			AccuracyMeters: line.Accuracy,
			CapturedAt:     capturedAt,
		}:
		}
	}
	return sc.Err()
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./waypost.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := waypost.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func queueCommand(args []string) error {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	cfgPath := fs.String("config", "./waypost.yaml", "Path to agent configuration file")
	list := fs.Bool("list", false, "Print every pending payload")
	clearAll := fs.Bool("clear", false, "Discard every pending payload")
	if err := fs.Parse(args); err != nil {
		return err
	}

	agent, err := offlineAgent(*cfgPath)
	if err != nil {
		return err
	}

	if *clearAll {
		if err := agent.ClearQueue(); err != nil {
			return err
		}
		fmt.Println("queue cleared")
		return nil
	}

	if *list {
		payloads, err := agent.QueuedPayloads()
		if err != nil {
			return err
		}
		for i, p := range payloads {
			fmt.Printf("%4d  %s  lat=%.6f lon=%.6f speed=%.1f\n",
				i+1, p.CapturedAt.Format(time.RFC3339), p.Lat, p.Lon, p.Speed)
		}
		return nil
	}

	n, err := agent.QueueCount()
	if err != nil {
		return err
	}
	fmt.Printf("%d payload(s) pending\n", n)
	return nil
}

// sendCommand shares a single position immediately, bypassing the throttle.
func sendCommand(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	cfgPath := fs.String("config", "./waypost.yaml", "Path to agent configuration file")
	lat := fs.Float64("lat", 0, "Latitude")
	lon := fs.Float64("lon", 0, "Longitude")
	speed := fs.Float64("speed", 0, "Speed in m/s")
	accuracy := fs.Float64("accuracy", 0, "Accuracy in meters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := waypost.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	agent, err := waypost.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Collector.Timeout+time.Second)
	defer cancel()

	res, err := agent.Share(ctx, waypost.Sample{
		Latitude:       *lat,
		Longitude:      *lon,
		SpeedMPS:       *speed,
		AccuracyMeters: *accuracy,
		CapturedAt:     time.Now(),
	})
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

// offlineAgent builds an agent for queue inspection without touching the
// network: connectivity reports false so nothing is sent as a side effect.
func offlineAgent(cfgPath string) (*waypost.Agent, error) {
	cfg, err := waypost.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	return waypost.New(cfg, waypost.WithConnectivity(neverConnected{}))
}

type neverConnected struct{}

func (neverConnected) Connected(context.Context) bool { return false }

func printUsage() {
	fmt.Printf(`waypost - location sampling and delivery agent

Usage:
  waypost <command> [flags]

Commands:
  run        Start the agent; samples are read as JSON lines from stdin
  validate   Load and validate a config file without starting the agent
  queue      Inspect (-list) or clear (-clear) the pending delivery queue
  send       Share a single position immediately, bypassing the throttle

Examples:
  waypost run -config ./waypost.yaml
  waypost queue -config ./waypost.yaml -list
  waypost send -config ./waypost.yaml -lat 52.52 -lon 13.405
`)
}
