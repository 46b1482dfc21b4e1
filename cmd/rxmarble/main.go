// Command rxmarble runs one of the rxstream combinators over interval sources
// in real time and logs every notification, like a live marble diagram.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/xinjiayu/rxstream"
	"github.com/xinjiayu/rxstream/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Error("Run failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	sched := rxstream.NewEventLoopScheduler(log)
	defer sched.Close()

	opts := []rxstream.Option{rxstream.WithScheduler(sched), rxstream.WithLogger(log)}
	stream, err := buildScenario(cfg.Scenario, makeSources(log, cfg.Sources, opts))
	if err != nil {
		return err
	}
	stream = rxstream.Finalize(stream, func() {
		log.Debug("Subscription finished", "scenario", cfg.Scenario)
	})

	done := make(chan error, 1)
	subs := make(chan rxstream.Subscription, 1)

	// Subscribe on the loop so every callback runs on the same goroutine.
	sched.Schedule(func() {
		subs <- stream.SubscribeWithCallbacks(
			func(v string) {
				log.Info("Next", "scenario", cfg.Scenario, "value", v)
			},
			func(err error) {
				done <- err
			},
			func() {
				log.Info("Complete", "scenario", cfg.Scenario)
				done <- nil
			},
		)
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	stopped := make(chan struct{})
	sched.Schedule(func() {
		(<-subs).Unsubscribe()
		close(stopped)
	})
	<-stopped

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("scenario %q did not finish within %s", cfg.Scenario, cfg.Timeout)
	}
	return nil
}

// makeSources builds one named interval source per config entry,
// emitting Name1, Name2, ... and completing after Take values.
// Each source logs its own notifications at debug level.
func makeSources(log *slog.Logger, cfgs []config.Source, opts []rxstream.Option) []rxstream.Observable[string] {
	out := make([]rxstream.Observable[string], len(cfgs))
	for i, c := range cfgs {
		name := c.Name
		src := rxstream.Map(
			rxstream.Take(rxstream.Interval(c.Period, opts...), c.Take),
			func(n int, _ int) (string, error) {
				return fmt.Sprintf("%s%d", name, n+1), nil
			},
		)
		out[i] = rxstream.Log(src, log, name)
	}
	return out
}

func joined(src rxstream.Observable[[]string]) rxstream.Observable[string] {
	return rxstream.Map(src, func(tuple []string, _ int) (string, error) {
		return "[" + strings.Join(tuple, ",") + "]", nil
	})
}

func labeled(src rxstream.Observable[string], label string) rxstream.Observable[string] {
	return rxstream.Map(src, func(v string, _ int) (string, error) {
		return label + ":" + v, nil
	})
}

func buildScenario(name string, sources []rxstream.Observable[string]) (rxstream.Observable[string], error) {
	switch name {
	case "concat":
		return rxstream.Concat(sources...), nil
	case "merge":
		return rxstream.Merge(sources...), nil
	case "zip":
		return joined(rxstream.Zip(sources...)), nil
	case "combineLatest":
		return joined(rxstream.CombineLatest(sources...)), nil
	case "forkJoin":
		return joined(rxstream.ForkJoin(sources...)), nil
	case "race":
		return rxstream.Race(sources...), nil
	case "partition":
		// One shared upstream, split by whether the sequence number is even.
		even, odd := rxstream.Partition(rxstream.Share(rxstream.Merge(sources...)), func(v string) bool {
			last := v[len(v)-1]
			return (last-'0')%2 == 0
		})
		return rxstream.Merge(labeled(even, "even"), labeled(odd, "odd")), nil
	default:
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
}
