// ibsim/main.go
//
// Standalone gateway simulator for local development: a fake TWS endpoint on
// one port and an HTTP admin API on another to inject scripted traffic.
//
// Usage:
//
//	go run ./scripts/ibsim
//
// Environment:
//
//	IBSIM_LISTEN       (default "127.0.0.1:4002") - gateway endpoint
//	IBSIM_ADMIN_LISTEN (default "127.0.0.1:8089") - admin API
//	IBSIM_SERVER_VERSION / IBSIM_ACCOUNTS / IBSIM_NEXT_ORDER_ID
//
// Point any client at the gateway port, then use the admin API to steer it:
//
//	curl localhost:8089/sessions
//	curl -X POST localhost:8089/sessions/<id>/error \
//	     -d '{"request_id":-1,"code":1100,"message":"Connectivity lost"}'
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"tws-core/internal/simulator"
	"tws-core/pkg/logging"
	"tws-core/pkg/protocol"
	"tws-core/pkg/wire"
)

func main() {
	log, err := logging.New(getenv("IBSIM_LOG_LEVEL", "debug"), true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer log.Sync()

	sim := simulator.New(log)
	if v := os.Getenv("IBSIM_SERVER_VERSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			sim.ServerVersion = n
		}
	}
	if v := os.Getenv("IBSIM_ACCOUNTS"); v != "" {
		sim.Accounts = v
	}
	if v := os.Getenv("IBSIM_NEXT_ORDER_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			sim.NextOrderID = n
		}
	}

	// Answer the requests a connectivity check sends so a bare simulator is
	// immediately useful; everything else goes through the admin API.
	sim.Handle(protocol.OutgoingRequestCurrentTime, simulator.CurrentTimeHandler())
	sim.Handle(protocol.OutgoingRequestPositions, func(s *simulator.Session, _ *wire.ResponseMessage) {
		s.Send("62", "1")
	})

	listen := getenv("IBSIM_LISTEN", "127.0.0.1:4002")
	if err := sim.StartAddr(listen); err != nil {
		log.Fatal("simulator listen failed", zap.Error(err))
	}
	defer sim.Close()
	log.Info("simulator listening", zap.String("addr", listen))

	admin := simulator.NewAdmin(sim)
	adminListen := getenv("IBSIM_ADMIN_LISTEN", "127.0.0.1:8089")
	go func() {
		if err := admin.Start(adminListen); err != nil {
			log.Fatal("admin listen failed", zap.Error(err))
		}
	}()
	log.Info("admin api listening", zap.String("addr", adminListen))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
