package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	app "github.com/rocketscienceinc/tictactoe-agent/internal"
	"github.com/rocketscienceinc/tictactoe-agent/internal/config"
)

const defaultConfigFile = "config.yml"

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	flags := flag.NewFlagSet("tictactoe-agent", flag.ExitOnError)
	configPath := flags.String("config", "", "path to the config file (overrides CONFIG_PATH)")
	checkOnly := flags.Bool("check", false, "load and validate the value table, then exit")
	_ = flags.Parse(os.Args[1:])

	path, err := resolveConfigPath(*configPath, os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	conf := config.MustLoad(path)
	logger := newLogger(os.Stdout, conf.LogLevel)

	if *checkOnly {
		if _, err = app.LoadEngine(context.Background(), logger, conf); err != nil {
			panic(fmt.Errorf("table check failed: %w", err))
		}
		return
	}

	// a missing or broken table must stop the process
	if err = app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// resolveConfigPath prefers the flag, then the environment, then config.yml in the working directory.
func resolveConfigPath(flagValue, envValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if envValue != "" {
		return envValue, nil
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return filepath.Join(baseDir, defaultConfigFile), nil
}

// newLogger builds the JSON logger. Unknown levels fall back to info; debug adds source locations.
func newLogger(out io.Writer, levelName string) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelName))); err != nil {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}))
}
