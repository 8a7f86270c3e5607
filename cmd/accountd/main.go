// Command accountd serves the account API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/geocode"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/imagestore"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/mail"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/MrEthical07/goAccount/store"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database, %w", err)
	}
	defer st.Close()

	if cfg.SweeperEnabled {
		sweeper, err := store.NewSweeper(st, cfg.Sweeper, logger.Named("sweeper"))
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	mailer, err := mail.NewSMTPSender(cfg.SMTP)
	if err != nil {
		return err
	}

	builder := goAccount.New().
		WithConfig(cfg.Engine).
		WithStore(st).
		WithMailer(mailer).
		WithLogger(logger.Named("account")).
		WithAuditSink(goAccount.ZapSink{Logger: logger.Named("audit")})

	if cfg.Engine.Throttle.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to reach redis, %w", err)
		}
		builder.WithRedis(rdb)
	}

	if cfg.S3.Bucket != "" {
		images, err := imagestore.New(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client, %w", err)
		}
		builder.WithImageStore(images)
	} else {
		logger.Warn("no s3 bucket configured, image uploads are disabled")
	}

	if cfg.GeocodeEnabled {
		geo, err := geocode.New(cfg.Geocode)
		if err != nil {
			return err
		}
		defer geo.Close()
		builder.WithGeocoder(geo)
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build account engine, %w", err)
	}
	defer engine.Close()

	var metricsHandler http.Handler
	if cfg.Engine.Metrics.Enabled {
		metricsHandler = prometheus.NewExporter(engine).Handler()
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx)

	mode := httpapi.ModeProduction
	if cfg.Env != "production" {
		mode = httpapi.ModeDevelopment
	}

	api, err := httpapi.NewRouter(httpapi.Options{
		Engine:       engine,
		Logger:       logger.Named("http"),
		Mode:         mode,
		AllowOrigins: cfg.AllowOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RateLimiter:  limiter,
		Health:       st.Health,
		Metrics:      metricsHandler,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
