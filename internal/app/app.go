package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/auditorium_booking/internal/cache"
	"github.com/Freeeeeet/auditorium_booking/internal/config"
	"github.com/Freeeeeet/auditorium_booking/internal/conflict"
	"github.com/Freeeeeet/auditorium_booking/internal/controller"
	"github.com/Freeeeeet/auditorium_booking/internal/controller/handlers"
	"github.com/Freeeeeet/auditorium_booking/internal/notify"
	"github.com/Freeeeeet/auditorium_booking/internal/repository"
	"github.com/Freeeeeet/auditorium_booking/internal/repository/memory"
	"github.com/Freeeeeet/auditorium_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// App собранный сервис: хранилище, индекс, сервисы, HTTP-сервер и фоновые задачи
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	bookings  *service.BookingService
	scheduler *Scheduler
	server    *http.Server
	closers   []func() error
}

// New собирает хранилище, кэш, уведомления, сервисы и HTTP-сервер
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, users, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	projections, err := a.openCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.openNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	index := conflict.NewIndex()
	clock := service.SystemClock{}

	a.bookings = service.NewBookingService(store, index, notifier, projections, clock, logger)
	queries := service.NewQueryService(store, index, users, projections, clock, logger)

	if err := a.bookings.LoadIndex(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.scheduler = NewScheduler(a.bookings, cfg.IndexPruneInterval, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controller.NewRouter(
		handlers.NewHandlers(a.bookings, queries, logger),
		controller.RouterConfig{
			JWTSecret:   cfg.JWTSecret,
			CORSOrigins: cfg.CORSOrigins,
			RateLimit:   cfg.RateLimit,
		},
		logger,
	)

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run обслуживает HTTP до отмены ctx, затем мягко останавливается
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Server is shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}

// Close освобождает соединения в обратном порядке открытия
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}

// openStore PostgreSQL, если задан DB_DSN, иначе хранилище в памяти
func (a *App) openStore(ctx context.Context) (service.BookingStore, service.UserCounter, error) {
	if a.cfg.DBDSN == "" {
		a.logger.Warn("DB_DSN is not set, bookings are kept in memory")
		return memory.NewBookingStore(), nil, nil
	}

	pool, err := pgxpool.New(ctx, a.cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if err := pool.Ping(ctx); err != nil {
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	migrator, err := NewMigrator(pool, a.logger)
	if err != nil {
		return nil, nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return nil, nil, err
	}

	a.logger.Info("Connected to PostgreSQL")
	return repository.NewBookingRepository(pool), repository.NewUserRepository(pool), nil
}

func (a *App) openCache(ctx context.Context) (service.ProjectionCache, error) {
	if a.cfg.RedisAddr == "" {
		return nil, nil
	}

	client, err := cache.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	a.logger.Info("Projection cache enabled",
		zap.String("redis_addr", a.cfg.RedisAddr),
		zap.Duration("ttl", a.cfg.CacheTTL),
	)
	return cache.NewRedisCache(client, a.cfg.CacheTTL), nil
}

func (a *App) openNotifier() (service.Notifier, error) {
	var channels notify.Multi

	if a.cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(a.cfg.TelegramToken, a.cfg.TelegramAdminChatID)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
		a.logger.Info("Telegram notifications enabled", zap.Int64("chat_id", a.cfg.TelegramAdminChatID))
	}

	if a.cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPPublisher(a.cfg.AMQPURL, a.cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		channels = append(channels, pub)
		a.logger.Info("Booking events are published to RabbitMQ", zap.String("exchange", a.cfg.AMQPExchange))
	}

	if len(channels) == 0 {
		return nil, nil
	}
	return channels, nil
}
