package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/nductrung-205/furniture-be/internal/config"
	"github.com/nductrung-205/furniture-be/internal/database"
	"github.com/nductrung-205/furniture-be/internal/handlers"
	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/internal/outbox"
	"github.com/nductrung-205/furniture-be/internal/repository"
	"github.com/nductrung-205/furniture-be/internal/service"
	"github.com/nductrung-205/furniture-be/pkg/kafka"
	"github.com/nductrung-205/furniture-be/pkg/logger"
	"github.com/nductrung-205/furniture-be/pkg/ratelimit"
)

type Server struct {
	config          *config.Config
	logger          logger.Logger
	router          *mux.Router
	httpServer      *http.Server
	db              *database.Database
	orderService    *service.OrderService
	reportService   *service.ReportService
	productRepo     *repository.ProductRepository
	outboxProcessor *outbox.Processor
	kafkaProducer   *kafka.Producer
	kafkaConsumer   *kafka.Consumer
	rateLimiter     *ratelimit.ClientLimiter
}

// NewServer wires the storefront backend together: Postgres repositories, the
// order and reporting services, the outbox processor, and the Kafka
// producer/consumer pair for order events.
func NewServer(cfg *config.Config, logger logger.Logger) (*Server, error) {
	r := mux.NewRouter()
	db, err := database.New(cfg, logger)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	orderRepo := repository.NewOrderRepository(db, logger)
	productRepo := repository.NewProductRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)

	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, logger)
	reportService := service.NewReportService(orderRepo, service.DefaultMargin, cfg.Report.TopProductsLimit, logger)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)

	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	outboxProcessor := outbox.NewProcessor(outboxRepo, &outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, logger)

	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.OrdersTopic, logger)
	for _, eventType := range []string{
		models.EventOrderCreated,
		models.EventOrderStatusChanged,
		models.EventOrderPaymentStatusChanged,
		models.EventOrderCancelled,
	} {
		outboxProcessor.RegisterHandler(eventType, kafkaHandler)
	}

	kafkaConsumer, err := kafka.NewConsumer(&kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		Topics:        []string{cfg.Kafka.OrdersTopic},
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
	}, logger)

	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	orderEventsHandler := handlers.NewOrderEventsHandler(logger)
	kafkaConsumer.RegisterHandler(cfg.Kafka.OrdersTopic, orderEventsHandler)

	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:              db,
		orderService:    orderService,
		reportService:   reportService,
		productRepo:     productRepo,
		outboxProcessor: outboxProcessor,
		kafkaProducer:   kafkaProducer,
		kafkaConsumer:   kafkaConsumer,
		rateLimiter:     ratelimit.NewClientLimiter(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond),
	}

	server.setupRoutes()
	outboxProcessor.Start()

	if err := kafkaConsumer.Start(); err != nil {
		// Non-fatal, the API keeps serving without the consumer.
		logger.Error("Failed to start Kafka consumer", "error", err)
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its background workers
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/number/{orderNumber}", s.getOrderByNumberHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", s.updateOrderStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}/payment-status", s.updatePaymentStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/orders/{id}/cancel", s.cancelOrderHandler).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/orders", s.listUserOrdersHandler).Methods(http.MethodGet)

	api.HandleFunc("/products", s.listProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", s.createProductHandler).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", s.getProductHandler).Methods(http.MethodGet)

	api.HandleFunc("/reports/revenue", s.revenueReportHandler).Methods(http.MethodGet)
	api.HandleFunc("/reports/revenue/quick", s.quickReportHandler).Methods(http.MethodGet)
}

// rateLimitMiddleware applies a per-client token bucket keyed by remote IP
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !s.rateLimiter.Allow(ip) {
			s.logger.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"ip", ip)

			w.Header().Set("Retry-After", "1")
			s.respondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr

	if i := strings.LastIndex(addr, ":"); i != -1 {
		addr = addr[:i]
	}

	return addr
}

// loggingMiddleware logs every processed request
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
