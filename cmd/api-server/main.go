package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"recipehub/internal/app"
	"recipehub/pkg/database"
	"recipehub/pkg/logger"
	"recipehub/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		// logger config comes from the same file, so fall back to stderr
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbCfg := database.DefaultConfig()
	if cfg.Database.Path != "" {
		dbCfg.Path = cfg.Database.Path
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		log.Fatal("db open failed", "path", dbCfg.Path, "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", "error", err)
	}

	a := app.New(cfg, db, log)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	feedSrv := a.FeedServer()
	grpcSrv := a.GRPCServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP API listening", "addr", cfg.Server.HTTPAddr, "db", dbCfg.Path)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return feedSrv.Run(ctx)
	})

	g.Go(func() error {
		ln, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		log.Info("gRPC listening", "addr", cfg.Server.GRPCAddr)
		return grpcSrv.Serve(ln)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown error", "error", err)
		}
		grpcSrv.GracefulStop()
		a.Hub.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("servers stopped")
}
