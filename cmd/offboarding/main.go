package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/songzhibin97/gkit/generator"

	"github.com/songzhibin97/offboarding/config"
	"github.com/songzhibin97/offboarding/events"
	"github.com/songzhibin97/offboarding/log"
	"github.com/songzhibin97/offboarding/rules"
	"github.com/songzhibin97/offboarding/server"
	"github.com/songzhibin97/offboarding/storage"
	"github.com/songzhibin97/offboarding/tracker"
	"github.com/songzhibin97/offboarding/workflow"
)

const (
	Name    = "offboarding"
	Version = "0.1.0"
)

// snowflakeEpoch is the start time of the request id sequence.
var snowflakeEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type offboarding struct {
	cfg        *config.Config
	store      storage.Storage
	closeStore func() error
	eventBus   *events.EventBus
	engine     *workflow.Engine
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateStore     = errors.New("failed to create store")
	ErrCreateGenerator = errors.New("failed to create id generator")
	ErrLoadInstances   = errors.New("failed to load instances")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &offboarding{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *offboarding) run() error {
	if err := s.initializeStore(); err != nil {
		return err
	}
	if err := s.initializeEngine(); err != nil {
		_ = s.closeStore()
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *offboarding) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(Name, env, Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
	if level != slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("Offboarding service starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("store_backend", s.cfg.StoreBackend),
		slog.String("redis_addr", s.cfg.Redis.Addr),
		slog.Int("redis_db", s.cfg.Redis.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *offboarding) initializeStore() error {
	switch s.cfg.StoreBackend {
	case config.BackendRedis:
		store, err := storage.NewRedisStorage(storage.RedisOptions{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
			Prefix:   s.cfg.Redis.Prefix,
			PoolSize: s.cfg.Redis.PoolSize,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCreateStore, err)
		}
		s.store = store
		s.closeStore = store.Close
	default:
		s.store = storage.NewMemoryStorage()
		s.closeStore = func() error { return nil }
	}
	return nil
}

func (s *offboarding) initializeEngine() error {
	snowflake := generator.NewSnowflake(snowflakeEpoch, uint16(s.cfg.MachineID))
	if snowflake == nil {
		return ErrCreateGenerator
	}

	s.eventBus = events.NewEventBus()
	s.eventBus.SubscribeFunc(events.TypeStageCompleted, logEvent)
	s.eventBus.SubscribeFunc(events.TypeWorkflowCompleted, logEvent)

	eng, err := workflow.NewEngine(snowflake, s.store, rules.NewExprEvaluator(),
		workflow.WithLogger(slog.Default()),
		workflow.WithEventBus(s.eventBus))
	if err != nil {
		return err
	}
	s.engine = eng

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if _, err := s.engine.Load(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadInstances, err)
	}
	return nil
}

func (s *offboarding) startServer() {
	apiServer := server.NewServer(s.engine, tracker.New(),
		server.WithDirectory(tracker.NewDirectory()))
	handler := apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: handler,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *offboarding) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	if err := s.engine.Checkpoint(ctx); err != nil {
		slog.Error("Checkpoint failed", log.Error(err))
	}
	if err := s.engine.Stop(ctx); err != nil {
		slog.Error("Engine shutdown failed", log.Error(err))
	}
	if err := s.closeStore(); err != nil {
		slog.Error("Store close failed", log.Error(err))
	}

	slog.Info("Server exited")
}

func logEvent(_ context.Context, event events.Event) error {
	slog.Info("Offboarding milestone",
		slog.String("event_type", event.Type),
		log.InstanceID(event.InstanceID),
		slog.Any("data", event.Data))
	return nil
}
