package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/mentorbook/internal/config"
	"github.com/Freeeeeet/mentorbook/internal/controller/httpapi"
	"github.com/Freeeeeet/mentorbook/internal/notify"
	"github.com/Freeeeeet/mentorbook/internal/repository"
	"github.com/Freeeeeet/mentorbook/internal/repository/base"
	"github.com/Freeeeeet/mentorbook/internal/repository/memory"
	"github.com/Freeeeeet/mentorbook/internal/seed"
	"github.com/Freeeeeet/mentorbook/internal/service"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// storage объединяет репозитории выбранного хранилища
type storage struct {
	tx       service.Transactor
	users    service.UserRepository
	courses  service.CourseRepository
	windows  service.WindowRepository
	bookings service.BookingRepository
	close    func()
}

// App держит все компоненты сервиса и управляет их жизненным циклом
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *storage
	dispatcher *notify.Dispatcher
	server     *http.Server
	closers    []func()
}

// New собирает приложение по конфигу: хранилище, сервисы, уведомления и HTTP сервер
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.close)

	sender, err := a.newSender(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.dispatcher = notify.NewDispatcher(
		notify.NewDirectory(store.users, store.courses),
		sender,
		cfg.NotifyWorkers,
		cfg.NotifyQueueSize,
		logger,
	)

	userService := service.NewUserService(store.users, logger)
	availabilityService := service.NewAvailabilityService(store.tx, store.users, store.windows, logger)
	bookingService := service.NewBookingService(store.tx, store.courses, store.windows, store.bookings, a.dispatcher, logger)

	handler := httpapi.NewHandler(userService, availabilityService, bookingService, logger)
	router := httpapi.NewRouter(handler, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Production:      cfg.IsProduction(),
	})

	a.server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// Run запускает воркеров уведомлений и HTTP сервер, блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	// Воркеры переживают отмену ctx, чтобы дослать очередь при остановке
	a.dispatcher.Start(context.WithoutCancel(ctx))

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.cfg.HTTPAddr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Сначала HTTP, чтобы новые события не приходили в закрытую очередь
	a.dispatcher.Shutdown()

	return runErr
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) newSender(ctx context.Context) (notify.Sender, error) {
	switch a.cfg.NotifyTransport {
	case config.TransportTelegram:
		b, err := bot.New(a.cfg.TelegramToken, bot.WithSkipGetMe())
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		return notify.NewTelegramSender(b), nil

	case config.TransportRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return notify.NewRedisSender(client, a.cfg.RedisOutboxKey), nil
	}

	return notify.NewLogSender(a.logger), nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		store := memory.NewStore()
		if err := loadSeed(ctx, cfg, logger, store, store.Users(), store.Courses()); err != nil {
			return nil, err
		}
		logger.Warn("Using in-memory storage, data is lost on restart")
		return &storage{
			tx:       store,
			users:    store.Users(),
			courses:  store.Courses(),
			windows:  store.Windows(),
			bookings: store.Bookings(),
			close:    func() {},
		}, nil
	}

	pool, err := OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	tx := base.NewTransactor(pool)
	users := repository.NewUserRepository(pool)
	courses := repository.NewCourseRepository(pool)
	if err := loadSeed(ctx, cfg, logger, tx, users, courses); err != nil {
		pool.Close()
		return nil, err
	}

	return &storage{
		tx:       tx,
		users:    users,
		courses:  courses,
		windows:  repository.NewWindowRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		close:    pool.Close,
	}, nil
}

// loadSeed загружает SEED_FILE в выбранное хранилище, если файл задан
func loadSeed(ctx context.Context, cfg *config.Config, logger *zap.Logger, tx seed.Transactor, users seed.UserCreator, courses seed.CourseCreator) error {
	if cfg.SeedFile == "" {
		return nil
	}

	f, err := seed.Load(ctx, cfg.SeedFile, tx, users, courses)
	if err != nil {
		return err
	}

	logger.Info("Seed loaded",
		zap.String("file", cfg.SeedFile),
		zap.Int("users", len(f.Users)),
		zap.Int("courses", len(f.Courses)),
	)
	return nil
}

// OpenPool подключается к PostgreSQL и проверяет соединение
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
