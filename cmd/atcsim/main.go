package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/atcsim/atcsim/internal/airline"
	"github.com/atcsim/atcsim/internal/cli"
	"github.com/atcsim/atcsim/internal/config"
	"github.com/atcsim/atcsim/internal/control"
	"github.com/atcsim/atcsim/internal/ipc"
	"github.com/atcsim/atcsim/internal/metrics"
	"github.com/atcsim/atcsim/internal/sink"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(viper.New())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)

	if cfg.RosterFile != "" {
		overridden, err := config.LoadRosterOverrides(cfg.RosterFile, airline.Roster)
		if err != nil {
			logger.Error("roster override failed", "error", err)
			return 1
		}
		airline.Roster = overridden
	}

	reg := prometheus.NewRegistry()
	promRegistry := metrics.New(reg)
	sinks := []sink.AVNSink{sink.NewCLISink(os.Stdout), promRegistry}

	var bridge *ipc.Bridge
	if cfg.IPCAddr != "" {
		conn, err := dialIPC(cfg.IPCAddr)
		if err != nil {
			logger.Error("ipc dial failed", "addr", cfg.IPCAddr, "error", err)
			return 1
		}
		bridge = ipc.NewBridge(conn, logger)
		sinks = append(sinks, bridge)
	}

	if cfg.DashboardAddr != "" {
		ws := sink.NewWebSocketSink(logger)
		sinks = append(sinks, ws)
		mux := http.NewServeMux()
		mux.HandleFunc("/dashboard", ws.HandleUpgrade)
		go func() {
			if err := http.ListenAndServe(cfg.DashboardAddr, mux); err != nil {
				logger.Error("dashboard server exited", "error", err)
			}
		}()
	}

	fanout := sink.NewFanout(logger, sinks...)
	ctrl := control.New(cfg.Duration, cfg.Seed, logger, control.WithSink(fanout), control.WithMetrics(promRegistry))

	if bridge != nil {
		bridge.OnPaymentConfirmed = ctrl.ConfirmPayment
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if bridge != nil {
		go bridge.Listen(ctx)
	}

	root := cli.NewRootCommand(ctrl, logger, os.Stdout, promRegistry)
	return cli.Execute(ctx, root, os.Args[1:])
}

// newLogger builds the process-wide structured logger, following the
// teacher's slog.NewTextHandler construction.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// dialIPC connects to the external billing/payment collaborator's address
// (spec §4.8), either a TCP address or a unix socket path.
func dialIPC(addr string) (net.Conn, error) {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return net.Dial("tcp", addr)
	}
	return net.Dial("unix", addr)
}
