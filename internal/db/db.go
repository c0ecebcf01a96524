package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	_ "modernc.org/sqlite"

	"pdf-chat/internal/config"
	"pdf-chat/internal/helper"
	"pdf-chat/internal/models"
)

// Store is the session/message and settings repository. Every call holds
// the store lock, so callers may share one Store freely.
type Store struct {
	mu sync.Mutex
	db *bun.DB
}

// Open connects to the configured database and creates missing tables.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	bunDB, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	s := NewStore(bunDB)
	if err := s.Init(ctx); err != nil {
		bunDB.Close()
		return nil, err
	}
	return s, nil
}

// ConnectDB opens a single-connection bun handle for the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*bun.DB, error) {
	var bunDB *bun.DB
	switch cfg.Driver {
	case config.DriverSQLite:
		if !isMemoryDSN(cfg.DSN) {
			if err := helper.CreateFolder(filepath.Dir(cfg.DSN)); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	case config.DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN), pgdriver.WithPassword(cfg.Password)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	case config.DriverPQ:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", models.ErrConfiguration, cfg.Driver)
	}

	// one shared connection; an in-memory sqlite database lives on it
	bunDB.SetMaxOpenConns(1)
	bunDB.SetMaxIdleConns(1)

	if cfg.Debug {
		bunDB.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return bunDB, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func NewStore(bunDB *bun.DB) *Store {
	return &Store{db: bunDB}
}

// Init creates the messages and settings tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, model := range []interface{}{(*Message)(nil), (*Setting)(nil)} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	_, err := s.db.NewCreateIndex().
		Model((*Message)(nil)).
		Index("messages_session_id_idx").
		IfNotExists().
		Column("session_id").
		Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
