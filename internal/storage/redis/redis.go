// Package redis implements the storage interfaces on a Redis server, for
// teams that share one recorder database across workstations.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testigo/testigo/internal/config"
	"github.com/testigo/testigo/internal/storage"
)

// Store implements the storage.Store interface using Redis.
type Store struct {
	client        *redis.Client
	sessionStore  *sessionStore
	evidenceStore *evidenceStore
	pauseStore    *pauseStore
}

// Open creates a new Redis-backed storage instance.
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry a port, e.g. when tests hand us a miniredis
	// address.
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := &Store{
		client:        client,
		sessionStore:  &sessionStore{client: client},
		evidenceStore: &evidenceStore{client: client},
		pauseStore:    &pauseStore{client: client},
	}

	return store, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Sessions returns the SessionStore implementation.
func (s *Store) Sessions() storage.SessionStore {
	return s.sessionStore
}

// Evidences returns the EvidenceStore implementation.
func (s *Store) Evidences() storage.EvidenceStore {
	return s.evidenceStore
}

// Pauses returns the PauseStore implementation.
func (s *Store) Pauses() storage.PauseStore {
	return s.pauseStore
}
