package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"recipehub/internal/app"
	"recipehub/pkg/database"
	"recipehub/pkg/logger"
	"recipehub/pkg/utils"
)

// Standalone gRPC server for deployments that run the RPC surface apart
// from the HTTP API.
func main() {
	cfg, err := utils.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	dbCfg := database.DefaultConfig()
	if cfg.Database.Path != "" {
		dbCfg.Path = cfg.Database.Path
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		log.Fatal("db open failed", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal("grpc listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
	}

	grpcServer := app.New(cfg, db, log).GRPCServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	log.Info("gRPC server listening", "addr", cfg.Server.GRPCAddr)
	if err := grpcServer.Serve(listener); err != nil {
		log.Fatal("grpc server stopped", "error", err)
	}
}
