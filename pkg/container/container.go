package container

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"icepay-gateway/internal/config"
	"icepay-gateway/internal/domains/payment/gateway/icepay"
	paymentHandler "icepay-gateway/internal/domains/payment/handler"
	paymentRepo "icepay-gateway/internal/domains/payment/repository"
	paymentService "icepay-gateway/internal/domains/payment/service"
	"icepay-gateway/internal/infrastructure/cache"
	"icepay-gateway/internal/infrastructure/database"
	"icepay-gateway/internal/infrastructure/events"
	"icepay-gateway/internal/infrastructure/metrics"
	"icepay-gateway/pkg/jwt"
	"icepay-gateway/pkg/logger"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container holds every long-lived dependency of the API and the worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config     *config.Config
	DB         *database.PostgresDB
	Redis      *cache.RedisClient
	JWTManager *jwt.Manager
	Metrics    *metrics.Recorder
	Locker     *cache.RedisLocker

	// Publisher is nil when Kafka is disabled.
	Publisher paymentService.EventPublisher
	closers   []io.Closer

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	PaymentRepo  paymentRepo.PaymentRepository
	OrderRepo    paymentRepo.OrderRepository
	PostbackRepo paymentRepo.PostbackLogRepository
	TxManager    paymentRepo.TransactionManager

	// ========================================
	// SERVICE LAYER
	// ========================================
	IcepayClient   *icepay.Client
	PaymentService paymentService.PaymentService

	// ========================================
	// HANDLER LAYER
	// ========================================
	PaymentHandler *paymentHandler.PaymentHandler
}

// NewContainer builds the dependency graph in order: config,
// infrastructure, repositories, services, handlers.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	log.Info().Str("env", cfg.App.Environment).Msg("initializing container")

	c := &Container{Config: cfg}

	if err := c.initInfrastructure(); err != nil {
		c.Cleanup()
		return nil, err
	}

	c.initRepositories()

	if err := c.initServices(); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	c.initHandlers()

	log.Info().Msg("container initialized")
	return c, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initInfrastructure() error {
	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	// Redis backs the payment lock, so unlike a cache it is not optional.
	c.Redis = cache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	c.Locker = cache.NewRedisLocker(c.Redis.Client)

	c.JWTManager = jwt.NewManager(c.Config.JWT.Secret, c.Config.JWT.AccessTTL)
	c.Metrics = metrics.New(prometheus.DefaultRegisterer)

	if c.Config.Kafka.Enabled {
		publisher := events.NewKafkaPublisher(c.Config.Kafka.Brokers, c.Config.Kafka.Topic)
		c.Publisher = publisher
		c.closers = append(c.closers, publisher)

		log.Info().
			Str("brokers", strings.Join(c.Config.Kafka.Brokers, ",")).
			Str("topic", c.Config.Kafka.Topic).
			Msg("kafka publisher enabled")
	}

	return nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.PaymentRepo = paymentRepo.NewPaymentRepository(pool)
	c.OrderRepo = paymentRepo.NewOrderRepository(pool)
	c.PostbackRepo = paymentRepo.NewPostbackLogRepository(pool)
	c.TxManager = paymentRepo.NewPostgresTransactionManager(pool)
}

func (c *Container) initServices() error {
	icepayCfg := icepay.NewConfig(
		c.Config.Icepay.MerchantID,
		c.Config.Icepay.SecretCode,
		strings.TrimRight(c.Config.Icepay.APIURL, "/"),
		"", "",
	)
	icepayCfg.TestMode = c.Config.Icepay.TestMode
	icepayCfg.Timeout = c.Config.Icepay.Timeout

	client, err := icepay.NewClient(icepayCfg)
	if err != nil {
		return err
	}
	c.IcepayClient = client

	deps := paymentService.ReconcilerDeps{
		Payments:  c.PaymentRepo,
		Orders:    c.OrderRepo,
		TxManager: c.TxManager,
		Locker:    c.Locker,
		Publisher: c.Publisher,
		Metrics:   c.Metrics,
		Logger:    logger.Named("reconciler"),
	}

	c.PaymentService = paymentService.NewPaymentService(
		paymentService.Config{
			PublicBaseURL: c.Config.App.PublicBaseURL,
			TestMode:      c.Config.Icepay.TestMode,
		},
		deps,
		c.PostbackRepo,
		client,
	)

	return nil
}

func (c *Container) initHandlers() {
	c.PaymentHandler = paymentHandler.NewPaymentHandler(c.PaymentService)
}

// Cleanup releases connections in reverse order of creation.
func (c *Container) Cleanup() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close resource")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}

	if c.DB != nil {
		c.DB.Close()
	}

	log.Info().Msg("container cleanup completed")
}
