package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/health-dashboard/cmd/agent/collector"
	"github.com/and161185/health-dashboard/internal/buildinfo"
	"github.com/and161185/health-dashboard/internal/client"
	"github.com/and161185/health-dashboard/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewClientConfig()
	logger := config.NewLogger("stdout")
	defer func() { _ = logger.Sync() }()
	buildinfo.Log(logger, "agent")

	sampler := collector.NewSampler(cfg.ClientName, cfg.PingTarget)
	logger.Infof("Agent config: Server=%s, ReportInterval=%ds, Client=%s, PingTarget=%s",
		cfg.ServerAddr, cfg.ReportInterval, sampler.ClientName, cfg.PingTarget)

	c := client.NewClient(sampler, cfg, logger)
	if err := c.Run(ctx); err != nil {
		logger.Fatal(err)
	}
}
