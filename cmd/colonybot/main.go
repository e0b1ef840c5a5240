// Command colonybot runs the tick core against a simulated world. It loads the
// driver tuning, opens the configured persistent store, and steps the world for
// a number of ticks. It can also serve Prometheus metrics and a live websocket
// feed of tick reports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"colonybot/internal/behavior"
	"colonybot/internal/config"
	"colonybot/internal/core"
	"colonybot/internal/host"
	"colonybot/internal/host/simhost"
	"colonybot/internal/journal"
	"colonybot/internal/loop"
	"colonybot/internal/transport/observer"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			exitFunc(0)
			return
		}
		fmt.Fprintf(os.Stderr, "colonybot: %v\n", err)
		exitFunc(1)
	}
}

type options struct {
	configPath string
	ticks      int
	interval   time.Duration
	listen     string
	journalDir string
	trace      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("colonybot", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.configPath, "config", "c", "", "YAML driver config (optional)")
	fs.IntVarP(&opts.ticks, "ticks", "n", 300, "ticks to run; 0 runs until interrupted")
	fs.DurationVar(&opts.interval, "interval", 0, "wall-clock pause between ticks")
	fs.StringVar(&opts.listen, "listen", "", "address serving /metrics and the /ws tick feed")
	fs.StringVar(&opts.journalDir, "journal-dir", "", "directory for the zstd tick journal (overrides config)")
	fs.BoolVar(&opts.trace, "trace", false, "write registry spans as JSON lines to stderr")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.ticks < 0 {
		return opts, fmt.Errorf("--ticks must be >= 0, got %d", opts.ticks)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.journalDir != "" {
		cfg.JournalDir = opts.journalDir
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	store, err := core.OpenPersistentStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("close store", "error", err)
			}
		}()
	}

	metrics := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(metrics)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	regOpts := []core.RegistryOption{
		core.WithLogger(logger),
		core.WithMetricsRecorder(recorder),
		core.WithExpiringTicks(cfg.ExpiringTicks),
	}
	if opts.trace {
		regOpts = append(regOpts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	reg := core.NewRegistry(store, regOpts...)

	hub := observer.NewHub(logger)
	defer hub.Close()
	driverOpts := []loop.Option{loop.WithLogger(logger), loop.WithObserver(hub)}

	if cfg.JournalDir != "" {
		j := journal.NewWriter(cfg.JournalDir, "ticks")
		defer func() {
			if err := j.Close(); err != nil {
				logger.Warn("close journal", "error", err)
			}
		}()
		driverOpts = append(driverOpts, loop.WithObserver(loop.ObserverFunc(func(_ context.Context, r loop.TickReport) error {
			return j.Write(r)
		})))
	}

	if opts.listen != "" {
		shutdown, addr, err := serve(opts.listen, metrics, hub)
		if err != nil {
			return err
		}
		defer shutdown()
		logger.Info("serving metrics and tick feed", "addr", addr)
	}

	var last loop.TickReport
	driverOpts = append(driverOpts, loop.WithObserver(loop.ObserverFunc(func(_ context.Context, r loop.TickReport) error {
		last = r
		return nil
	})))

	world := newWorld()
	driver := loop.New(reg, behavior.NewDemo(logger), cfg, driverOpts...)
	logger.Info("colonybot starting", "ticks", opts.ticks, "interval", opts.interval, "min_cpu_bucket", cfg.MinCPUBucket)
	if err := driver.Run(ctx, world, opts.ticks, opts.interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return printSummary(stdout, reg, last)
}

func newLogger(cfg config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == config.FormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}

func serve(addr string, metrics *prometheus.Registry, hub *observer.Hub) (func(), string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	mux.Handle("/ws", hub.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return shutdown, ln.Addr().String(), nil
}

// newWorld seeds a single region with one spawner, a source and a
// controller.
func newWorld() *simhost.World {
	at := func(x, y int) host.Position { return host.Position{X: x, Y: y, Region: "R1"} }
	w := simhost.New()
	w.AddStructure(simhost.StructureSpec{ID: "Spawn1", Pos: at(25, 25), Energy: 1000, EnergyCapacity: 1000})
	w.AddSource(simhost.SourceSpec{ID: "src1", Pos: at(26, 26), Energy: 3000})
	w.AddController("ctrl1", at(20, 20))
	return w
}

func printSummary(w io.Writer, reg *core.Registry, last loop.TickReport) error {
	if _, err := fmt.Fprintf(w, "tick %d: %d units, %d structures\n", last.Time, len(reg.Units()), len(reg.Structures())); err != nil {
		return err
	}
	for _, g := range reg.Groups() {
		if _, err := fmt.Fprintf(w, "group %s: phase %s\n", g.Region(), g.Phase()); err != nil {
			return err
		}
	}
	return nil
}
