// tws_check/main.go
//
// Connectivity check against a running TWS or IB Gateway instance.
//
// Usage:
//
//	go run ./scripts/tws_check
//
// Environment (same as the library):
//
//	TWS_HOST / TWS_PORT / TWS_CLIENT_ID
//	TWS_CHECK_POSITIONS (default "false") - also pull the positions snapshot
//
// The check connects, prints the negotiated session, asks for the server
// clock, and optionally streams the positions snapshot. It never places
// orders.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"tws-core/pkg/client"
	"tws-core/pkg/config"
	"tws-core/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer log.Sync()

	c, err := client.Connect(cfg, log)
	if err != nil {
		log.Fatal("connect failed", zap.Error(err))
	}
	defer c.Disconnect()

	info := c.ServerInfo()
	log.Info("session established",
		zap.Int("server_version", info.Version),
		zap.Time("connection_time", info.ConnectionTime),
		zap.Strings("accounts", c.ManagedAccounts()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverTime, err := c.CurrentTime(ctx)
	if err != nil {
		log.Fatal("current time failed", zap.Error(err))
	}
	log.Info("server clock", zap.Time("time", serverTime),
		zap.Duration("skew", time.Since(serverTime)))

	if os.Getenv("TWS_CHECK_POSITIONS") != "true" {
		return
	}

	sub, err := c.Positions()
	if err != nil {
		log.Fatal("positions request failed", zap.Error(err))
	}
	defer sub.Cancel()

	count := 0
	for update, err := range sub.All(ctx) {
		if err != nil {
			log.Warn("positions stream error", zap.Error(err))
			continue
		}
		if update.End {
			break
		}
		count++
		p := update.Position
		log.Info("position",
			zap.String("account", p.Account),
			zap.String("symbol", p.Contract.Symbol),
			zap.Float64("quantity", p.Quantity),
			zap.Float64("avg_cost", p.AverageCost))
	}
	log.Info("positions snapshot complete", zap.Int("count", count))
}
