// Server runs the intake HTTP API and the gRPC health service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apprepo "recruit-intake/internal/application/repository"
	candrepo "recruit-intake/internal/candidate/repository"
	"recruit-intake/internal/catalog"
	"recruit-intake/internal/config"
	"recruit-intake/internal/db"
	"recruit-intake/internal/events"
	"recruit-intake/internal/health"
	"recruit-intake/internal/intake/handler"
	"recruit-intake/internal/intake/service"
	"recruit-intake/internal/intake/store"
	"recruit-intake/internal/logging"
	"recruit-intake/internal/notify"
	"recruit-intake/internal/security"
	"recruit-intake/internal/storage"
	otelsetup "recruit-intake/internal/telemetry/otel"
	"recruit-intake/internal/verification"
)

const (
	shutdownTimeout = 15 * time.Second
	sweepInterval   = time.Minute
	healthInterval  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, otelsetup.ServiceName, cfg.OTLPInsecure, logger)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer shutdownWithTimeout(logger, "otel", providers.Shutdown)

	var (
		candidates   service.CandidateRegistry
		applications service.ApplicationStore
		pinger       health.Pinger
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: int32(cfg.DBMaxConns)})
		if err != nil {
			return err
		}
		defer pool.Close()
		candidates = candrepo.NewPostgresRepository(pool)
		applications = apprepo.NewPostgresRepository(pool)
		pinger = pool
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory repositories")
		candidates = candrepo.NewMemoryRepository()
		applications = apprepo.NewMemoryRepository()
	}

	notifier, dev := newNotifier(cfg)
	blobs, files := newBlobStore(cfg)

	producer := events.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.KafkaTopic, logger)
	emitters := events.Multi{events.NewLogEmitter(providers.LoggerProvider)}
	if producer != nil {
		emitters = append(emitters, producer)
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Warn("kafka producer close", zap.Error(err))
			}
		}()
	}
	dispatcher := events.NewDispatcher(emitters, logger)
	defer func() {
		if !dispatcher.Close() {
			logger.Warn("events: drain timed out")
		}
	}()

	verifier := verification.NewService(notifier, verification.Policy{
		Digits:      cfg.OTPDigits,
		Cooldown:    cfg.OTPCooldown,
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
	}, verification.WithCountryCode(cfg.PhoneCountryCode), verification.WithLogger(logger))

	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	submitter := service.NewSubmitter(blobs, candidates, applications, logger)
	ctl := service.NewController(verifier, submitter, cat,
		service.WithLogger(logger),
		service.WithEvents(dispatcher),
		service.WithCountryCode(cfg.PhoneCountryCode),
		service.WithTelemetry(providers.TracerProvider, providers.MeterProvider),
	)

	secret := []byte(cfg.SessionTokenSecret)
	if len(secret) == 0 {
		logger.Warn("SESSION_TOKEN_SECRET not set; using a random secret, tokens will not survive a restart")
		if secret, err = security.RandomSecret(); err != nil {
			return err
		}
	}
	tokens, err := security.NewTokenProvider(secret, cfg.SessionTTL)
	if err != nil {
		return err
	}

	sessions := store.New(cfg.SessionTTL, nil, logger)
	checker := health.NewChecker(pinger, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), cors.New(corsConfig(cfg)))
	checker.Register(router)
	if files != nil {
		if p := files.PublicPath(); p != "" {
			router.GET(p+"/*key", gin.WrapH(http.StripPrefix(p, files.Handler())))
		} else {
			logger.Warn("STORAGE_PUBLIC_BASE_URL has no path; stored resumes are not served by this process")
		}
	}
	handler.NewHandler(ctl, sessions, tokens, cat, dev, logger).Register(router)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	grpcSrv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthSrv := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions.Run(gctx, sweepInterval)
		return nil
	})
	g.Go(func() error {
		checker.Watch(gctx, healthSrv, healthInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr), zap.String("notify_channel", cfg.NotifyChannel))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC health server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownWithTimeout(logger, "http", httpSrv.Shutdown)
		grpcSrv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// newNotifier returns the configured channel; the dev notifier is also returned for the read-back route.
func newNotifier(cfg *config.Config) (notify.Notifier, *notify.DevNotifier) {
	switch cfg.NotifyChannel {
	case config.ChannelWhatsApp:
		return notify.NewWebhookClient(cfg.WhatsAppWebhookURL, cfg.WhatsAppWebhookToken, &http.Client{Timeout: cfg.NotifyTimeout}), nil
	case config.ChannelSMS:
		c := notify.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender)
		c.HTTPClient.Timeout = cfg.NotifyTimeout
		return c, nil
	default:
		dev := notify.NewDevNotifier(cfg.OTPTTL)
		return dev, dev
	}
}

// newBlobStore returns the configured store. For the fs driver the store is also returned so its files
// can be served under the public base URL.
func newBlobStore(cfg *config.Config) (storage.BlobStore, *storage.FSStore) {
	if cfg.StorageDriver == config.StorageHTTP {
		return storage.NewHTTPStore(cfg.StorageHTTPURL, cfg.StorageHTTPBucket, cfg.StorageHTTPKey), nil
	}
	fs := storage.NewOSStore(cfg.StorageFSRoot, cfg.StoragePublicBaseURL)
	return fs, fs
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.ExposeHeaders = []string{"Retry-After"}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowAllOrigins = true
	}
	return c
}

func shutdownWithTimeout(logger *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("shutdown", zap.String("component", name), zap.Error(err))
	}
}
