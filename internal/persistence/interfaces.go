// Package persistence defines the signal history store the delivery layer
// records emitted signals to.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/signalrun/internal/signal"
)

// ErrNotFound is returned when no signal matches the lookup
var ErrNotFound = errors.New("signal not found")

// TimeRange represents a half-open time window [From, To)
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Day returns the UTC calendar day containing t
func Day(t time.Time) TimeRange {
	from := time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return TimeRange{From: from, To: from.Add(24 * time.Hour)}
}

// Contains reports whether t falls inside the window
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.From) && t.Before(tr.To)
}

// SignalStore persists emitted signals keyed by audit id
type SignalStore interface {
	// Insert records the signal; inserted is false when the audit id already exists
	Insert(ctx context.Context, s *signal.Signal) (inserted bool, err error)

	// Delete removes the signal; a missing audit id is not an error
	Delete(ctx context.Context, auditID string) error

	// GetByAuditID returns ErrNotFound when the id is unknown
	GetByAuditID(ctx context.Context, auditID string) (*signal.Signal, error)

	// List returns signals generated inside the window, newest first
	List(ctx context.Context, tr TimeRange, limit int) ([]*signal.Signal, error)

	// CountBySetup returns signal counts grouped by setup
	CountBySetup(ctx context.Context, tr TimeRange) (map[string]int64, error)
}

// HealthCheck represents store health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}
