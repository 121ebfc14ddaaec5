// Command policyctl uploads a serialized value table to Redis so servers
// configured with the redis policy source can load it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rocketscienceinc/tictactoe-agent/internal/policy"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository"
	"github.com/rocketscienceinc/tictactoe-agent/internal/repository/storage"
)

const timeout = 30 * time.Second

func main() {
	addr := flag.String("redis", "localhost:6379", "redis address")
	name := flag.String("name", "best_agent", "table name, stored as policy:<name>")
	path := flag.String("file", "./best_agent.json", "table file to upload")
	remove := flag.Bool("delete", false, "delete the named table instead of uploading")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger, *addr, *name, *path, *remove); err != nil {
		logger.Error("policyctl failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, name, path string, remove bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := storage.New(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	tableRepo := repository.NewTableRepository(client)

	if remove {
		if err = tableRepo.Delete(ctx, name); err != nil {
			return err
		}
		logger.Info("table deleted", "name", name)
		return nil
	}

	blob, err := repository.NewFileSource(path).Fetch(ctx)
	if err != nil {
		return err
	}

	// refuse to publish a table the servers could not load
	engine, err := policy.LoadBytes(blob)
	if err != nil {
		return fmt.Errorf("table %s is not valid: %w", path, err)
	}

	if err = tableRepo.Save(ctx, name, blob); err != nil {
		return err
	}

	logger.Info("table uploaded", "name", name, "states", engine.Size(), "bytes", len(blob))

	return nil
}
