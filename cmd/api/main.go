package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/vending-gateway/internal/config"
	gateway "github.com/nimasrn/vending-gateway/internal/gateways"
	"github.com/nimasrn/vending-gateway/internal/handlers"
	"github.com/nimasrn/vending-gateway/internal/repository"
	"github.com/nimasrn/vending-gateway/internal/services"
	xhttp "github.com/nimasrn/vending-gateway/pkg/http"
	"github.com/nimasrn/vending-gateway/pkg/logger"
	"github.com/nimasrn/vending-gateway/pkg/pg"
	"github.com/nimasrn/vending-gateway/pkg/prom"
	"github.com/nimasrn/vending-gateway/pkg/redis"
)

func main() {
	cfg, err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 15))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}

	db, err := pg.CreateReadWrite(readConf, writeConf, cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	if cfg.MigrationsDir != "" {
		if err := pg.Migrate(writeConf, cfg.MigrationsDir); err != nil {
			logger.Error("failed running migrations", "error", err)
			return
		}
	}

	if err := prom.Create(cfg.AppName, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed creating metrics", "error", err)
	}
	if cfg.AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	// webhook dedup guard is optional, the write path stays idempotent
	// without it
	var guard *services.WebhookGuard
	if cfg.RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: "default",
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		guard = services.NewWebhookGuard(redisAdap, cfg.WebhookDedupTTL)
	}

	gw, err := gateway.NewClient(&gateway.Config{
		BaseURL:   cfg.OpnAPIBaseURL,
		SecretKey: cfg.OpnSecretKey,
		Timeout:   cfg.OpnTimeout,
	})
	if err != nil {
		logger.Error("failed creating payment gateway client", "error", err)
		return
	}

	machineRepo := repository.NewMachineRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	eventRepo := repository.NewAPIEventRepository(db)

	// services
	machineService := services.NewMachineService(machineRepo)
	slotService := services.NewSlotService(slotRepo, machineRepo)
	paymentService := services.NewPaymentService(slotRepo, transactionRepo, eventRepo, gw, guard, cfg.OpnCurrency, cfg.OpnSourceType)
	healthService := services.NewHealthService(db)

	// handlers
	machineHandler := handlers.NewMachineHandler(machineService, slotService)
	slotHandler := handlers.NewSlotHandler(slotService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	healthHandler := handlers.NewHealthHandler(healthService)

	api := s.Router.Group("/api")
	handlers.RegisterPaymentRoutes(api, paymentHandler)
	handlers.RegisterSlotRoutes(api, slotHandler)

	handlers.RegisterMachineRoutes(s.Router, machineHandler)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
