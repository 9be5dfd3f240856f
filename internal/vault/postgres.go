package vault

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresConfig contains Postgres vault configuration.
type PostgresConfig struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// PostgresVault is a Postgres-backed TokenVault for deployments that need
// durable, auditable token mappings.
type PostgresVault struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresVault connects to Postgres and ensures the vault schema exists.
func NewPostgresVault(config *PostgresConfig, logger *zap.Logger) (*PostgresVault, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	v := &PostgresVault{db: db, logger: logger}

	if err := v.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize vault schema: %w", err)
	}

	logger.Info("Postgres token vault initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return v, nil
}

func (v *PostgresVault) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := v.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS mask_vault_namespaces (
			namespace  TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS mask_vault_tokens (
			namespace  TEXT NOT NULL REFERENCES mask_vault_namespaces(namespace) ON DELETE CASCADE,
			value      TEXT NOT NULL,
			token      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, value),
			UNIQUE (namespace, token)
		);`

	if _, err := v.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create vault tables: %w", err)
	}
	return nil
}

// Init prepares a namespace for use.
func (v *PostgresVault) Init(ctx context.Context, namespace string) error {
	if namespace == "" {
		return fmt.Errorf("vault namespace must not be empty")
	}
	query := `INSERT INTO mask_vault_namespaces (namespace) VALUES ($1) ON CONFLICT DO NOTHING`
	if _, err := v.db.ExecContext(ctx, query, namespace); err != nil {
		return fmt.Errorf("failed to initialize vault namespace: %w", err)
	}
	return nil
}

// Clear removes a namespace; its token mappings cascade.
func (v *PostgresVault) Clear(ctx context.Context, namespace string) error {
	query := `DELETE FROM mask_vault_namespaces WHERE namespace = $1`
	if _, err := v.db.ExecContext(ctx, query, namespace); err != nil {
		return fmt.Errorf("failed to clear vault namespace: %w", err)
	}
	return nil
}

func (v *PostgresVault) ensureInitialized(ctx context.Context, namespace string) error {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM mask_vault_namespaces WHERE namespace = $1)`
	if err := v.db.GetContext(ctx, &exists, query, namespace); err != nil {
		return fmt.Errorf("vault lookup failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrVaultNotInitialized, namespace)
	}
	return nil
}

// Tokenize returns the token for a value, minting one on first use.
func (v *PostgresVault) Tokenize(ctx context.Context, namespace, value string) (string, error) {
	if err := v.ensureInitialized(ctx, namespace); err != nil {
		return "", err
	}

	var token string
	lookup := `SELECT token FROM mask_vault_tokens WHERE namespace = $1 AND value = $2`
	err := v.db.GetContext(ctx, &token, lookup, namespace, value)
	if err == nil {
		return token, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("vault lookup failed: %w", err)
	}

	token, err = newToken()
	if err != nil {
		return "", err
	}

	// ON CONFLICT DO NOTHING so a concurrent mint of the same value wins
	// exactly once; re-read when we lost the race.
	insert := `
		INSERT INTO mask_vault_tokens (namespace, value, token)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, value) DO NOTHING`
	res, err := v.db.ExecContext(ctx, insert, namespace, value, token)
	if err != nil {
		return "", fmt.Errorf("vault write failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if err := v.db.GetContext(ctx, &token, lookup, namespace, value); err != nil {
			return "", fmt.Errorf("vault lookup failed: %w", err)
		}
	}

	return token, nil
}

// Detokenize reverses the mapping for a previously issued token.
func (v *PostgresVault) Detokenize(ctx context.Context, namespace, token string) (string, bool, error) {
	if err := v.ensureInitialized(ctx, namespace); err != nil {
		return "", false, err
	}

	var value string
	query := `SELECT value FROM mask_vault_tokens WHERE namespace = $1 AND token = $2`
	err := v.db.GetContext(ctx, &value, query, namespace, token)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("vault lookup failed: %w", err)
	}
	return value, true, nil
}

// Close releases the database connection pool.
func (v *PostgresVault) Close() error {
	return v.db.Close()
}

// maskDatabaseURL hides credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if idx := strings.Index(url, "@"); idx != -1 {
		if schemeEnd := strings.Index(url, "://"); schemeEnd != -1 {
			return url[:schemeEnd+3] + "***@" + url[idx+1:]
		}
	}
	return url
}
