package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"bookreviews/internal/api"
	"bookreviews/internal/auth"
	"bookreviews/internal/feedback"
	"bookreviews/internal/grpcserver"
	"bookreviews/internal/notify"
	"bookreviews/internal/reviews"
	synchub "bookreviews/internal/sync"
	"bookreviews/pkg/database"
	"bookreviews/pkg/logger"
	"bookreviews/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("bookreviews-api", cfg.LogLevel)
	slog.SetDefault(log)
	gin.SetMode(gin.ReleaseMode)

	dbCfg := cfg.Database()
	db, err := database.Open(dbCfg)
	if err != nil {
		log.Error("open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Error("db migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start TCP sync first (so you notice binding errors early)
	hub := synchub.NewHub(log)
	go hub.Run(ctx)
	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub, log)
	tcpLn, err := tcpSrv.Listen()
	if err != nil {
		log.Error("tcp sync listen failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	notifier := notify.NewServer(cfg.NotifyAddr, nil, log)
	if err := notifier.Listen(); err != nil {
		log.Error("udp notify listen failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	users := auth.NewRepo(db)
	reviewRepo := reviews.NewRepo(db)
	tokens := auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTTTL,
	}
	reviewSvc := reviews.NewService(reviewRepo, hub, log)
	feedbackSvc := feedback.NewService(feedback.NewRepo(db), reviewRepo, hub, notifier, log)

	router := api.NewRouter(api.Deps{
		DB:       db,
		DBPath:   dbCfg.Path,
		Hub:      hub,
		Logger:   log,
		Users:    users,
		Tokens:   tokens,
		Reviews:  reviewSvc,
		Feedback: feedbackSvc,
	})

	// gRPC shares the hub and notifier with HTTP
	grpcLn, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	grpcSrv := grpcserver.NewGRPCServer(grpcserver.NewServer(
		reviewSvc, feedbackSvc, auth.NewAuthenticator(tokens, users), log,
	))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Serve(tcpLn); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := notifier.Serve(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("gRPC server listening", slog.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(grpcLn); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP API server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", slog.String("error", err.Error()))
	}

	log.Info("shutting down servers")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", slog.String("error", err.Error()))
	}
	grpcSrv.GracefulStop()
	if err := tcpSrv.Close(); err != nil {
		log.Error("tcp shutdown error", slog.String("error", err.Error()))
	}
	if err := notifier.Close(); err != nil {
		log.Error("udp shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	wg.Wait()
	log.Info("servers stopped")
}
