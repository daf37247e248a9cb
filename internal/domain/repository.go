// Package domain defines the core interfaces and types for Heron.
package domain

import (
	"context"
	"time"
)

// Repository stores the per-tenant input snapshots the engine reads.
// Derived scores are never persisted.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// SaveSnapshot replaces the tenant's snapshot and bumps its generation.
	SaveSnapshot(ctx context.Context, tenantID string, snap *Snapshot) (*SnapshotInfo, error)

	// LoadSnapshot returns the tenant's latest snapshot.
	LoadSnapshot(ctx context.Context, tenantID string) (*Snapshot, error)

	// SnapshotInfo returns generation and counts without loading rows.
	SnapshotInfo(ctx context.Context, tenantID string) (*SnapshotInfo, error)

	// ListTenants returns every tenant with a stored snapshot.
	ListTenants(ctx context.Context) ([]string, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	TenantID   string    `json:"tenantId"`
	Generation int64     `json:"generation"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Products   int       `json:"products"`
	Customers  int       `json:"customers"`
	Orders     int       `json:"orders"`
	Inventory  int       `json:"inventory"`
	Warehouses int       `json:"warehouses"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
