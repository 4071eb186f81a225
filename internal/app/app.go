package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/watchlock/server/internal/controller"
	"github.com/watchlock/server/internal/repository/connection/inmemory"
	"github.com/watchlock/server/internal/repository/room/redis"
	"github.com/watchlock/server/internal/service/assistant"
	"github.com/watchlock/server/internal/service/room"
	"github.com/watchlock/server/pkg/ctxlogger"
	"github.com/watchlock/server/pkg/redisclient"
)

type AppConfig struct {
	Secret           string        `json:"-"`
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	MembersLimit     int           `json:"members_limit"`
	LogLevel         string        `json:"log_level"`
	RedisHost        string        `json:"redis_host"`
	RedisPort        int           `json:"redis_port"`
	RedisPassword    string        `json:"-"`
	AssistantKeys    string        `json:"-"`
	AssistantBaseURL string        `json:"assistant_base_url"`
	AssistantModel   string        `json:"assistant_model"`
	RoomRetention    time.Duration `json:"room_retention"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return fmt.Errorf("secret must not be empty")
	}
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.RoomRetention <= 0 {
		return fmt.Errorf("room retention must be greater than 0")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}
	logger := slog.New(&h)

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	roomRepo := redis.NewRepo(rc, logger, cfg.RoomRetention)
	connRepo := inmemory.NewRepo(logger)
	assistantClient := assistant.NewClient(logger, &assistant.Config{
		APIKeys: cfg.AssistantKeys,
		BaseURL: cfg.AssistantBaseURL,
		Model:   cfg.AssistantModel,
	})
	roomService := room.NewService(roomRepo, connRepo, assistantClient, clockwork.NewRealClock(), logger, &room.Config{
		Secret:       cfg.Secret,
		MembersLimit: cfg.MembersLimit,
	})
	ctrl := controller.NewController(roomService, assistantClient, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: ctrl.GetMux(),
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, cancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
