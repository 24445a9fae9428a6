package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a queried entity does not exist.
var ErrNotFound = errors.New("not found")

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a pgx connection pool holding the domain reputation list.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect creates a new DB instance, connects to PostgreSQL, and runs migrations.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := &DB{Pool: pool, logger: logger}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Migrate reads and executes the embedded SQL migration files.
func (db *DB) Migrate(ctx context.Context) error {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	db.logger.Info("database migrated")
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// PingContext checks the database connection.
func (db *DB) PingContext(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// LookupDomain returns the most specific blocklist entry covering host: the
// host itself or any of its parent domains.
func (db *DB) LookupDomain(ctx context.Context, host string) (*DomainEntry, error) {
	candidates := ParentDomains(host)
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	var e DomainEntry
	err := db.Pool.QueryRow(ctx,
		`SELECT domain, category, source, added_at
		 FROM domain_reputation
		 WHERE domain = ANY($1)
		 ORDER BY length(domain) DESC
		 LIMIT 1`,
		candidates).Scan(&e.Domain, &e.Category, &e.Source, &e.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup domain: %w", err)
	}
	return &e, nil
}

// UpsertDomains inserts or refreshes blocklist entries in one batch and
// returns the number of rows written.
func (db *DB) UpsertDomains(ctx context.Context, entries []DomainEntry) (int, error) {
	batch := &pgx.Batch{}
	for _, e := range entries {
		domain := NormalizeDomain(e.Domain)
		if domain == "" {
			continue
		}
		batch.Queue(
			`INSERT INTO domain_reputation (domain, category, source)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (domain) DO UPDATE SET
			    category = EXCLUDED.category,
			    source = EXCLUDED.source`,
			domain, orDefault(e.Category, "phishing"), orDefault(e.Source, "manual"))
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	br := db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for i := 0; i < batch.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert domain: %w", err)
		}
		written += int(tag.RowsAffected())
	}
	return written, nil
}

// NormalizeDomain lower-cases a domain and strips a trailing dot and "www.".
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// ParentDomains returns host followed by each parent domain with at least
// two labels: "a.b.example.com" -> [a.b.example.com b.example.com example.com].
func ParentDomains(host string) []string {
	h := NormalizeDomain(host)
	if h == "" {
		return nil
	}
	labels := strings.Split(h, ".")
	if len(labels) < 2 {
		return []string{h}
	}
	out := make([]string, 0, len(labels)-1)
	for i := 0; i <= len(labels)-2; i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
