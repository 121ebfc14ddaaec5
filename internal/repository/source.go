package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var ErrEmptyPath = errors.New("table path is empty")

// FileSource reads a serialized value table from local disk.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (that *FileSource) Fetch(_ context.Context) ([]byte, error) {
	if that.Path == "" {
		return nil, ErrEmptyPath
	}

	blob, err := os.ReadFile(that.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file: %w", err)
	}

	return blob, nil
}

// RedisSource reads a named table through a TableRepository.
type RedisSource struct {
	Repo TableRepository
	Name string
}

func NewRedisSource(repo TableRepository, name string) *RedisSource {
	return &RedisSource{Repo: repo, Name: name}
}

func (that *RedisSource) Fetch(ctx context.Context) ([]byte, error) {
	blob, err := that.Repo.Get(ctx, that.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch table from redis: %w", err)
	}

	return blob, nil
}
