package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transfertrack/internal/auth"
	"transfertrack/internal/db"
	"transfertrack/internal/ratelimit"
	"transfertrack/internal/server"
	"transfertrack/internal/storage"
	"transfertrack/internal/store"
	"transfertrack/internal/transfers"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := store.NewUserRepository(pool)
	transferRepo := store.NewTransferRepository(pool)

	localStore, err := storage.NewLocalStore(config.UploadDir)
	if err != nil {
		return err
	}

	var s3Store storage.BlobStore
	if config.S3Bucket != "" {
		awsConfig, err := loadAWSConfig(ctx, config.S3Region)
		if err != nil {
			return err
		}
		s3Store = storage.NewS3Store(s3.NewFromConfig(awsConfig), config.S3Bucket)
		logger.WithField("bucket", config.S3Bucket).Info("s3 storage enabled")
	} else {
		logger.WithField("dir", config.UploadDir).Info("using local upload storage")
	}

	authSvc := auth.NewService(userRepo)
	transferSvc := transfers.NewService(logger, transferRepo, userRepo, s3Store, localStore)

	limiter := ratelimit.New()
	go limiter.Start(ctx)

	srv, err := server.New(config, logger, authSvc, transferSvc, userRepo, limiter)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
