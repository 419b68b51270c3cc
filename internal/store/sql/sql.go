// Package sql is the durable ArtifactStore backend for PROMOTION and
// CERTIFYING run intents (spec.md §7's ArtifactStoreRequired
// escalation), backed by Dolt. Grounded in the teacher's
// internal/storage/dolt package: dual embedded/server connection modes,
// cenkalti/backoff-wrapped retry around transient SQL errors, and
// go.opentelemetry.io/otel tracing spans around every statement.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/darianrosebrook/sterling/internal/store"
	"github.com/darianrosebrook/sterling/internal/sterlingerr"
)

var tracer = otel.Tracer("github.com/darianrosebrook/sterling/internal/store/sql")

// Config selects how Store connects to Dolt.
type Config struct {
	// Embedded mode: Path is a local Dolt database directory.
	Path string
	// Server mode: set ServerMode and dial a running dolt sql-server over
	// the MySQL wire protocol instead of opening Path in-process.
	ServerMode bool
	ServerHost string
	ServerPort int
	ServerUser string
	ServerPass string
	Database   string
}

func (c *Config) applyDefaults() {
	if c.ServerHost == "" {
		c.ServerHost = "127.0.0.1"
	}
	if c.ServerPort == 0 {
		c.ServerPort = 3307
	}
	if c.ServerUser == "" {
		c.ServerUser = "root"
	}
	if c.Database == "" {
		c.Database = "sterling"
	}
}

// Store is the Dolt-backed ArtifactStore.
type Store struct {
	db *sql.DB
}

const schemaDDL = `CREATE TABLE IF NOT EXISTS artifacts (
	schema_id      VARCHAR(255) NOT NULL,
	content_hash   VARCHAR(128) NOT NULL,
	artifact_key   VARCHAR(255) NOT NULL DEFAULT '',
	schema_version VARCHAR(64)  NOT NULL DEFAULT '',
	payload        LONGBLOB     NOT NULL,
	PRIMARY KEY (schema_id, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_key ON artifacts (schema_id, artifact_key);`

// Open connects to Dolt per cfg and ensures the artifacts table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.applyDefaults()

	var (
		db  *sql.DB
		err error
	)
	if cfg.ServerMode {
		db, err = openServerMode(cfg)
	} else {
		db, err = openEmbeddedMode(cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store/sql.Open: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store/sql.Open: init schema: %w", err)
	}
	return s, nil
}

func openServerMode(cfg Config) (*sql.DB, error) {
	addr := net.JoinHostPort(cfg.ServerHost, fmt.Sprintf("%d", cfg.ServerPort))
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("store/sql.Open: dolt server unreachable at %s: %w", addr, err)
	}
	_ = conn.Close()

	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s", cfg.ServerUser, cfg.ServerPass, addr, cfg.Database)
	return sql.Open("mysql", dsn)
}

func openEmbeddedMode(cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store/sql.Open: embedded mode requires Path")
	}
	dsn := fmt.Sprintf("file://%s?commitname=sterling&commitemail=sterling@local&database=%s", cfg.Path, cfg.Database)
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("store/sql.Open: parse dsn: %w", err)
	}
	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return nil, fmt.Errorf("store/sql.Open: new connector: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	return err
}

// withRetry retries op against transient server-mode errors (dolt
// sql-server restarts, lock contention) with capped exponential
// backoff, the teacher's dolt.retryOnTransientError idiom.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(bo, ctx))
}

// isRetryable classifies transient server-mode errors (connection
// resets, lock-wait timeouts) as retryable; constraint violations and
// syntax errors are not.
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "broken pipe", "lock wait timeout", "try again"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Put implements store.ArtifactStore.
func (s *Store) Put(ctx context.Context, a store.Artifact) error {
	if a.ContentHash == "" {
		a.ContentHash = store.ComputeContentHash(a.Payload)
	}
	ctx, span := tracer.Start(ctx, "store.sql.put", trace.WithAttributes(
		attribute.String("schema_id", a.SchemaID),
	))
	defer span.End()

	err := s.withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO artifacts (schema_id, content_hash, artifact_key, schema_version, payload)
			 VALUES (?, ?, ?, ?, ?)
			 ON DUPLICATE KEY UPDATE artifact_key = VALUES(artifact_key), schema_version = VALUES(schema_version), payload = VALUES(payload)`,
			a.SchemaID, a.ContentHash, a.Key, a.SchemaVersion, a.Payload,
		)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("store/sql.Put: %w", err)
	}
	return nil
}

// Get implements store.ArtifactStore.
func (s *Store) Get(ctx context.Context, schemaID, contentHash string) (store.Artifact, error) {
	ctx, span := tracer.Start(ctx, "store.sql.get", trace.WithAttributes(
		attribute.String("schema_id", schemaID),
	))
	defer span.End()

	var a store.Artifact
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT schema_id, content_hash, artifact_key, schema_version, payload FROM artifacts WHERE schema_id = ? AND content_hash = ?`,
			schemaID, contentHash)
		return row.Scan(&a.SchemaID, &a.ContentHash, &a.Key, &a.SchemaVersion, &a.Payload)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return store.Artifact{}, fmt.Errorf("store/sql.Get: %w", sterlingerr.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return store.Artifact{}, fmt.Errorf("store/sql.Get: %w", err)
	}
	if err := store.Verify(a); err != nil {
		return store.Artifact{}, err
	}
	return a, nil
}

// GetByKey implements store.ArtifactStore.
func (s *Store) GetByKey(ctx context.Context, schemaID, key string) (store.Artifact, error) {
	ctx, span := tracer.Start(ctx, "store.sql.get_by_key", trace.WithAttributes(
		attribute.String("schema_id", schemaID),
	))
	defer span.End()

	var a store.Artifact
	err := s.withRetry(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`SELECT schema_id, content_hash, artifact_key, schema_version, payload FROM artifacts WHERE schema_id = ? AND artifact_key = ? ORDER BY content_hash DESC LIMIT 1`,
			schemaID, key)
		return row.Scan(&a.SchemaID, &a.ContentHash, &a.Key, &a.SchemaVersion, &a.Payload)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return store.Artifact{}, fmt.Errorf("store/sql.GetByKey: %w", sterlingerr.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return store.Artifact{}, fmt.Errorf("store/sql.GetByKey: %w", err)
	}
	if err := store.Verify(a); err != nil {
		return store.Artifact{}, err
	}
	return a, nil
}

// Close implements store.ArtifactStore.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.ArtifactStore = (*Store)(nil)
