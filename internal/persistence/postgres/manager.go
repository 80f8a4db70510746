package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/sawpanic/signalrun/internal/persistence"
)

// Config holds database connection configuration
type Config struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns reasonable pool defaults for dsn
func DefaultConfig(dsn string, queryTimeout time.Duration) Config {
	return Config{
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    queryTimeout,
	}
}

// Manager owns the connection pool and the signal repository built on it
type Manager struct {
	db     *sqlx.DB
	config Config
	store  persistence.SignalStore
}

// Open connects, configures the pool and pings the database
func Open(ctx context.Context, config Config) (*Manager, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	db, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	m := NewManager(db, config)
	if err := m.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return m, nil
}

// NewManager wraps an existing connection
func NewManager(db *sqlx.DB, config Config) *Manager {
	return &Manager{
		db:     db,
		config: config,
		store:  NewSignalsRepo(db, config.QueryTimeout),
	}
}

// Store returns the signal repository
func (m *Manager) Store() persistence.SignalStore {
	return m.store
}

// Migrate applies the signals schema
func (m *Manager) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()

	if _, err := m.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping tests basic connectivity to database
func (m *Manager) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()

	return m.db.PingContext(pingCtx)
}

// Health returns current connectivity and pool status
func (m *Manager) Health(ctx context.Context) persistence.HealthCheck {
	start := time.Now()

	var errs []string
	healthy := true
	if err := m.Ping(ctx); err != nil {
		errs = append(errs, fmt.Sprintf("ping failed: %v", err))
		healthy = false
	}

	stats := m.db.Stats()
	return persistence.HealthCheck{
		Healthy: healthy,
		Errors:  errs,
		ConnectionPool: map[string]int{
			"max_open":      stats.MaxOpenConnections,
			"open":          stats.OpenConnections,
			"in_use":        stats.InUse,
			"idle":          stats.Idle,
			"wait_count":    int(stats.WaitCount),
			"wait_duration": int(stats.WaitDuration.Milliseconds()),
		},
		LastCheck:      time.Now(),
		ResponseTimeMS: time.Since(start).Milliseconds(),
	}
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
