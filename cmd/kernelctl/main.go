package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/corelinkhq/kernelmgr/internal/domain/kernels"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/config"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/logging"
	"github.com/corelinkhq/kernelmgr/internal/infrastructure/monitoring"
	"github.com/corelinkhq/kernelmgr/internal/shared/types"
	"github.com/corelinkhq/kernelmgr/internal/transport"
)

func usage() {
	fmt.Fprintf(os.Stderr, `kernelctl - inspect and manage remote compute kernels

Usage:
  kernelctl [flags] specs                 list installed kernel specs
  kernelctl [flags] running               list running kernel instances
  kernelctl [flags] start [spec-name]     start a kernel (default spec if omitted)
  kernelctl [flags] shutdown <kernel-id>  shut a kernel down
  kernelctl [flags] watch                 follow spec and running-set changes

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML config file overlaying environment values")
	baseURL := flag.String("url", "", "kernel service base URL (overrides config)")
	token := flag.String("token", "", "kernel service API token (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (watch only)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-command timeout")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelctl:", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Service.BaseURL = *baseURL
	}
	if *token != "" {
		cfg.Service.Token = *token
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelctl:", err)
		os.Exit(1)
	}
	defer log.Sync()

	client, err := transport.New(cfg.Service, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelctl:", err)
		os.Exit(1)
	}

	mgr := kernels.NewManager(client, cfg, log)
	defer mgr.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd := flag.Arg(0); cmd {
	case "specs":
		err = runSpecs(ctx, mgr, *timeout)
	case "running":
		err = runRunning(ctx, mgr, *timeout)
	case "start":
		err = runStart(ctx, mgr, flag.Arg(1), *timeout)
	case "shutdown":
		if flag.Arg(1) == "" {
			usage()
			os.Exit(2)
		}
		err = runShutdown(ctx, mgr, flag.Arg(1), *timeout)
	case "watch":
		err = runWatch(ctx, mgr, cfg.Metrics.Addr)
	default:
		fmt.Fprintf(os.Stderr, "kernelctl: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelctl:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func runSpecs(ctx context.Context, mgr *kernels.Manager, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := mgr.RefreshSpecs(ctx); err != nil {
		return err
	}
	specs := mgr.Specs()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tLANGUAGE\tDEFAULT")
	for _, name := range specs.Names() {
		spec := specs.Specs[name]
		def := ""
		if name == specs.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Name, spec.DisplayName, spec.Language, def)
	}
	return tw.Flush()
}

func runRunning(ctx context.Context, mgr *kernels.Manager, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := mgr.RefreshRunning(ctx); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPEC\tSTATE\tCONNECTIONS\tLAST ACTIVITY")
	for model := range mgr.Running() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			model.ID, model.Name, model.ExecutionState, model.Connections, model.LastActivity)
	}
	return tw.Flush()
}

func runStart(ctx context.Context, mgr *kernels.Manager, specName string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := mgr.StartNew(ctx, types.StartOptions{Name: specName})
	if err != nil {
		return err
	}
	fmt.Println(conn.KernelID())
	return nil
}

func runShutdown(ctx context.Context, mgr *kernels.Manager, kernelID string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return mgr.Shutdown(ctx, kernelID)
}

// runWatch follows both change channels and prints each emission until
// interrupted. With a metrics address it also exposes the manager's
// Prometheus registry.
func runWatch(ctx context.Context, mgr *kernels.Manager, metricsAddr string) error {
	metrics := monitoring.NewMetrics()
	mgr.WithMetrics(metrics)

	metrics.UpdateUptime()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.UpdateUptime()
			}
		}
	}()

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintln(os.Stderr, "kernelctl: metrics server:", err)
			}
		}()
	}

	mgr.SpecsChanged().Connect(func(c types.SpecCollection) {
		fmt.Printf("%s specs changed: %d specs, default %q\n",
			time.Now().Format(time.TimeOnly), len(c.Specs), c.Default)
	})
	mgr.RunningChanged().Connect(func(snapshot []types.KernelModel) {
		fmt.Printf("%s running changed: %d instances\n",
			time.Now().Format(time.TimeOnly), len(snapshot))
		for _, model := range snapshot {
			fmt.Printf("  %s  %s  %s\n", model.ID, model.Name, model.ExecutionState)
		}
	})

	if err := mgr.Wait(ctx); err != nil {
		return err
	}
	var count int
	for range mgr.Running() {
		count++
	}
	fmt.Printf("watching %d running instances, default spec %q (ctrl-c to stop)\n",
		count, mgr.Specs().Default)

	<-ctx.Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	return nil
}
