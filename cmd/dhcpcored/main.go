// dhcpcored — dual-stack DHCPv4/DHCPv6 server.
package main

import (
	"context"
	"flag"
	"fmt"
	nethttp "net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nullwatt/dhcpcore/internal/accounting"
	"github.com/nullwatt/dhcpcore/internal/audit"
	"github.com/nullwatt/dhcpcore/internal/config"
	"github.com/nullwatt/dhcpcore/internal/ddns"
	"github.com/nullwatt/dhcpcore/internal/dhcp4"
	"github.com/nullwatt/dhcpcore/internal/dhcp6"
	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/logging"
	"github.com/nullwatt/dhcpcore/internal/metrics"
	"github.com/nullwatt/dhcpcore/internal/transport"
)

const version = "dev"

const sweepInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "/etc/dhcpcored/config.toml", "path to configuration file")
	metricsAddr := flag.String("metrics-addr", ":9090", "address for the Prometheus /metrics endpoint")
	debugPort := flag.String("debug-port", "", "enable pprof debug server on this port (e.g. 6060)")
	flag.Parse()

	if *debugPort != "" {
		runtime.SetMutexProfileFraction(5)
		runtime.SetBlockProfileRate(1)
		go func() {
			addr := "0.0.0.0:" + *debugPort
			fmt.Fprintf(os.Stderr, "pprof debug server on http://%s/debug/pprof/\n", addr)
			if err := nethttp.ListenAndServe(addr, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server failed: %v\n", err)
			}
		}()
	}

	// SIGUSR1 dumps all goroutine stacks to /tmp/dhcpcored-goroutines.txt.
	// Works even under 100% CPU since signals are kernel-delivered.
	go func() {
		sigUsr1 := make(chan os.Signal, 1)
		signal.Notify(sigUsr1, syscall.SIGUSR1)
		for range sigUsr1 {
			buf := make([]byte, 64*1024*1024)
			n := runtime.Stack(buf, true)
			path := "/tmp/dhcpcored-goroutines.txt"
			if err := os.WriteFile(path, buf[:n], 0644); err != nil {
				fmt.Fprintf(os.Stderr, "failed to write goroutine dump: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "goroutine dump written to %s (%d bytes)\n", path, n)
			}
		}
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Server.LogLevel, os.Stdout)
	logger.Info("dhcpcored starting",
		"config", *configPath,
		"interface", cfg.Server.Interface,
		"v4_subnets", len(cfg.V4.Subnets),
		"v6_subnets", len(cfg.V6.Subnets))

	metrics.ServerInfo.WithLabelValues(version).Set(1)
	metrics.ServerStartTime.SetToCurrentTime()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus(10000, logger)
	go bus.Start()
	defer bus.Stop()

	var unsubs []func()
	if cfg.Audit.Enabled {
		auditLog, err := audit.Open(cfg.Audit.Path, logger)
		if err != nil {
			logger.Error("failed to open audit log", "error", err)
			os.Exit(1)
		}
		defer auditLog.Close()
		unsubs = append(unsubs, auditLog.Subscribe(bus))
		logger.Info("audit log enabled", "path", cfg.Audit.Path)
	}
	if cfg.Accounting.Enabled {
		sink := accounting.NewSink(accounting.Config{
			ServerAddr:  cfg.Accounting.ServerAddr,
			Secret:      cfg.Accounting.Secret,
			NASIdentity: cfg.Accounting.NASIdentity,
		}, logger)
		sink.Subscribe(ctx, bus)
		logger.Info("radius accounting enabled", "server", cfg.Accounting.ServerAddr)
	}
	if cfg.DDNS.Enabled {
		updater := ddns.NewRFC2136Client(cfg.DDNS.Server, cfg.DDNS.TSIGName, cfg.DDNS.TSIGAlgorithm, cfg.DDNS.TSIGSecret, 5*time.Second, logger)
		sink := ddns.NewSink(updater, cfg.DDNS.Forward, cfg.DDNS.Reverse, strings.TrimSuffix(cfg.DDNS.Forward, "."), uint32(cfg.DDNS.TTL), true, logger)
		sink.Subscribe(ctx, bus)
		logger.Info("ddns enabled", "server", cfg.DDNS.Server, "forward_zone", cfg.DDNS.Forward)
	}

	limiter := transport.NewRateLimiter(cfg.RateLimit.Enabled, cfg.RateLimit.MaxDiscoversPerSecond, cfg.RateLimit.MaxPerClientPerSecond)

	var v4Server *dhcp4.Server
	if len(cfg.V4.Subnets) > 0 {
		v4State, err := dhcp4.Init(cfg)
		if err != nil {
			logger.Error("failed to initialize v4 core", "error", err)
			os.Exit(1)
		}
		v4Server = dhcp4.NewServer(v4State, "", limiter, bus, logger)
		if err := v4Server.Start(ctx); err != nil {
			logger.Error("failed to start v4 server", "error", err)
			os.Exit(1)
		}
	}

	var v6Server *dhcp6.Server
	if len(cfg.V6.Subnets) > 0 {
		v6State, err := dhcp6.Init(cfg)
		if err != nil {
			logger.Error("failed to initialize v6 core", "error", err)
			os.Exit(1)
		}
		var ifaces []string
		if cfg.Server.Interface != "" {
			ifaces = []string{cfg.Server.Interface}
		}
		v6Server = dhcp6.NewServer(v6State, "", ifaces, limiter, bus, logger)
		if err := v6Server.Start(ctx); err != nil {
			logger.Error("failed to start v6 server", "error", err)
			os.Exit(1)
		}
	}

	go runSweeper(ctx, v4Server, v6Server)

	metricsMux := nethttp.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &nethttp.Server{Addr: *metricsAddr, Handler: metricsMux}
	go func() {
		logger.Info("metrics server listening", "address", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	metricsServer.Shutdown(shutdownCtx)
	shutdownCancel()

	if v4Server != nil {
		v4Server.Stop()
	}
	if v6Server != nil {
		v6Server.Stop()
	}
	for _, unsub := range unsubs {
		unsub()
	}
	logger.Info("dhcpcored stopped")
}

// runSweeper periodically drops expired leases from each running core,
// freeing their addresses back to the pool they came from.
func runSweeper(ctx context.Context, v4Server *dhcp4.Server, v6Server *dhcp6.Server) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if v4Server != nil {
				dhcp4.Sweep(v4Server.State(), now)
			}
			if v6Server != nil {
				dhcp6.Sweep(v6Server.State(), now)
			}
		}
	}
}
