package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-agent/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-agent/internal/config"
	"github.com/rocketscienceinc/tictactoe-agent/internal/policy"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-agent/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-agent/transport/rest"
)

const shutdownTimeout = 5 * time.Second

var ErrAddrNotFound = errors.New("redis address string is empty")

type tableSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := LoadEngine(ctx, logger, conf)
	if err != nil {
		return err
	}

	moveUseCase := usecase.NewMoveUseCase(logger, engine)
	server := rest.New(logger, conf.CORS.AllowOrigins, moveUseCase)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		httpErrCh <- server.Start(conf.HTTPPort)
	}()

	select {
	case err = <-httpErrCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-httpErrCh
}

// LoadEngine fetches the value table from the configured source and builds the engine.
// Every failure wraps apperror.ErrLoadTable: the service must not start without a policy.
func LoadEngine(ctx context.Context, logger *slog.Logger, conf *config.Config) (*policy.Engine, error) {
	log := logger.With("component", "app", "method", "LoadEngine")

	source, closeSource, err := newTableSource(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrLoadTable, err)
	}
	defer closeSource()

	blob, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrLoadTable, err)
	}

	engine, err := policy.LoadBytes(blob)
	if err != nil {
		return nil, err
	}

	log.Info("Successfully loaded RL model", "source", conf.Policy.Source, "states", engine.Size())

	return engine, nil
}

func newTableSource(ctx context.Context, conf *config.Config) (tableSource, func(), error) {
	switch conf.Policy.Source {
	case config.SourceFile:
		return repository.NewFileSource(conf.Policy.Path), func() {}, nil
	case config.SourceRedis:
		client, err := connectRedis(ctx, conf)
		if err != nil {
			return nil, nil, err
		}

		closeClient := func() {
			_ = client.Close()
		}

		return repository.NewRedisSource(repository.NewTableRepository(client), conf.Policy.Name), closeClient, nil
	default:
		return nil, nil, fmt.Errorf("unknown policy source %q", conf.Policy.Source)
	}
}

func connectRedis(ctx context.Context, conf *config.Config) (*redis.Client, error) {
	if conf.Redis.Host == "" || conf.Redis.Port == "" {
		return nil, ErrAddrNotFound
	}

	client, err := storage.New(ctx, conf.Redis.GetRedisAddr())
	if err != nil {
		return nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return client, nil
}
