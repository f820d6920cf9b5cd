package main

import (
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"bookreviews/internal/auth"
	"bookreviews/internal/feedback"
	"bookreviews/internal/grpcserver"
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
	log := logger.New("bookreviews-grpc", cfg.LogLevel)

	db := database.MustOpen(cfg.Database())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Error("db migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// standalone mode: no hub or notifier in this process, so creates here
	// reach neither live subscribers nor UDP notifications
	users := auth.NewRepo(db)
	reviewRepo := reviews.NewRepo(db)
	svc := grpcserver.NewServer(
		reviews.NewService(reviewRepo, synchub.NopPublisher{}, log),
		feedback.NewService(feedback.NewRepo(db), reviewRepo, synchub.NopPublisher{}, nil, log),
		auth.NewAuthenticator(auth.TokenService{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Duration: cfg.JWTTTL,
		}, users),
		log,
	)
	grpcServer := grpcserver.NewGRPCServer(svc)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
		grpcServer.GracefulStop()
	}()

	log.Info("gRPC server listening", slog.String("addr", cfg.GRPCAddr))
	if err := grpcServer.Serve(listener); err != nil {
		log.Error("grpc server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
