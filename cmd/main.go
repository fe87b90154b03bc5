package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/config"
	"github.com/participa-vecinal/participa/internal/application"
	"github.com/participa-vecinal/participa/internal/container"
	"github.com/participa-vecinal/participa/internal/domain/repository"
	"github.com/participa-vecinal/participa/internal/infrastructure/lock"
	"github.com/participa-vecinal/participa/internal/infrastructure/memory"
	"github.com/participa-vecinal/participa/internal/infrastructure/nocodb"
	"github.com/participa-vecinal/participa/internal/infrastructure/notifier"
	pginfra "github.com/participa-vecinal/participa/internal/infrastructure/postgres"
	"github.com/participa-vecinal/participa/internal/infrastructure/search"
	"github.com/participa-vecinal/participa/internal/interface/middleware"
	"github.com/participa-vecinal/participa/internal/router"
	"github.com/participa-vecinal/participa/pkg/helpers"
	mailtpl "github.com/participa-vecinal/participa/pkg/mailer/templates"
	"github.com/participa-vecinal/participa/pkg/metrics"
	"github.com/participa-vecinal/participa/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreBackend, err)
	}
	cleanups = append(cleanups, closeStore)

	// Redis lock when enabled, otherwise in-process
	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisEnabled {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		locker = lock.NewRedis(rdb, cfg.LockTTL, logger)
	}

	channel, closeChannel := openChannel(cfg, logger)
	cleanups = append(cleanups, closeChannel)

	var index application.ProposalIndex
	if cfg.ElasticsearchEnabled {
		es, err := helpers.NewESClient(ctx, cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			// search is optional; the rest of the API keeps working
			helpers.LogError(logger, "elasticsearch unavailable, search disabled", err, nil)
		} else {
			index = search.NewProposalIndex(es, cfg.ESProposalsIndex, logger)
		}
	}

	c := container.New(container.Infra{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Store:   store,
		Locker:  locker,
		Sender:  notifier.NewDispatcher(channel, cfg.NotifyTimeout, logger, m),
		Index:   index,
	})

	// Gin engine and global middleware
	r := gin.New()
	if !cfg.TrustProxyHeaders {
		if err := r.SetTrustedProxies(nil); err != nil {
			log.Fatalf("trusted proxies: %v", err)
		}
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxyHeaders))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = []string{cfg.BaseURL}
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg, c)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return repository.Store{}, nil, err
		}
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return repository.Store{}, nil, err
		}
		return pginfra.New(pool), pool.Close, nil
	case config.StoreMemory:
		logger.Warn("memory store selected, data is lost on restart")
		return memory.New().Repositories(), func() {}, nil
	case config.StoreNocoDB:
		client := nocodb.NewClient(cfg.NocoDBURL, cfg.NocoDBToken, cfg.NocoDBTimeout, logger)
		return nocodb.New(client, nocodb.Tables{
			Padron:         cfg.TablePadron,
			Usuarios:       cfg.TableUsuarios,
			Propuestas:     cfg.TablePropuesta,
			Votos:          cfg.TableVotos,
			Reportes:       cfg.TableReportes,
			Notificaciones: cfg.TableNotifs,
		}), func() {}, nil
	default:
		return repository.Store{}, nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}

// openChannel picks the verification side channel. A queue that cannot be
// reached falls back to the log channel so registration keeps working.
func openChannel(cfg *config.Config, logger *logrus.Logger) (notifier.Channel, func()) {
	fallback := notifier.LogChannel{Logger: logger}
	if !cfg.MailSendEnabled {
		return fallback, func() {}
	}
	switch cfg.NotifyChannel {
	case config.NotifyRabbitMQ:
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable, verification links go to the log", err, nil)
			return fallback, func() {}
		}
		return notifier.QueueChannel{
			Publisher: pub,
			Branding: mailtpl.Branding{
				AppName:        cfg.AppName,
				CompanyName:    cfg.CompanyName,
				CompanyAddress: cfg.CompanyAddress,
				LogoURL:        cfg.LogoURL,
				SupportURL:     cfg.SupportURL,
				PrivacyURL:     cfg.PrivacyURL,
			},
		}, pub.Close
	case config.NotifyWebhook:
		if cfg.WebhookURL == "" {
			logger.Warn("NOTIFY_WEBHOOK_URL is empty, verification links go to the log")
			return fallback, func() {}
		}
		return notifier.WebhookChannel{
			URL:    cfg.WebhookURL,
			Secret: cfg.WebhookSecret,
			Client: &http.Client{Timeout: cfg.NotifyTimeout},
		}, func() {}
	default:
		return fallback, func() {}
	}
}
