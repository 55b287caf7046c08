package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillip/club-events-go/config"
	"github.com/phillip/club-events-go/controllers"
	"github.com/phillip/club-events-go/logger"
	"github.com/phillip/club-events-go/metrics"
	"github.com/phillip/club-events-go/notify"
	"github.com/phillip/club-events-go/payments"
	"github.com/phillip/club-events-go/routes"
	"github.com/phillip/club-events-go/store"
	"github.com/phillip/club-events-go/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Init(cfg.LogLevel)
	log := logger.Logger
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	if err := cfg.ConnectMongo(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() { _ = cfg.MongoClient.Disconnect(context.Background()) }()
	log.Info().Str("db", cfg.DBName).Msg("database connected")

	db := cfg.Database()
	if err := store.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	events := store.NewEvents(db)
	registrations := store.NewRegistrations(db)

	creds := payments.Credentials{KeyID: cfg.RazorpayKeyID, Secret: cfg.RazorpaySecret}
	var gateway payments.Gateway
	if creds.Configured() {
		gateway = payments.NewRazorpayGateway(creds)
	} else {
		log.Warn().Msg("RAZORPAY_KEY_ID/RAZORPAY_SECRET not set, order creation will fail")
	}
	paymentService := payments.NewService(creds, events, registrations, gateway, &log)

	metrics.Init()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var worker *notify.Worker
	if cfg.AMQPURL != "" {
		rmq, err := notify.NewRabbit(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		paymentService.WithNotifier(rmq)

		mailer, err := utils.NewZeptoMailer(cfg, &log)
		if err != nil {
			log.Warn().Err(err).Msg("email is not configured, confirmations stay queued")
		} else {
			worker = notify.NewWorker(rmq, mailer, &log)
			if err := worker.Start(workerCtx); err != nil {
				log.Fatal().Err(err).Msg("failed to start confirmation worker")
			}
		}
	} else {
		log.Info().Msg("AMQP_URL not set, registration confirmations disabled")
	}

	var media controllers.PosterStore
	if cfg.CloudinaryConfigured() {
		uploader, err := utils.NewMediaUploader(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure Cloudinary")
		}
		media = uploader
	}

	app, err := routes.NewEngine(cfg, routes.Dependencies{
		Payments:      paymentService,
		Events:        events,
		Media:         media,
		Registrations: registrations,
		Submissions:   store.NewSubmissions(db),
		Admins:        store.NewAdmins(db),
		Ping:          func(ctx context.Context) error { return cfg.MongoClient.Ping(ctx, nil) },
		Log:           &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down server")
	}

	cancelWorkers()
	if worker != nil {
		worker.Stop()
	}
	log.Info().Msg("Shutdown complete")
}
