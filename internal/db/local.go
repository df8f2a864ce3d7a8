package stamps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	model "github.com/glkeru/loyalty/stamps/internal/models"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Локальное хранилище на устройстве (SQLite)
type LocalDB struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewLocalDB(path string, logger *zap.Logger) (*LocalDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect local store: %w", err)
	}
	// SQLite - один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("local schema: %w", err)
	}
	return &LocalDB{db, logger}, nil
}

func (l *LocalDB) Close() error {
	return l.db.Close()
}

// Load: нет ключа или битый JSON - ok=false, ошибка только в лог
func (l *LocalDB) Load(ctx context.Context, key string) (model.PartialSnapshot, bool) {
	query, args, err := sq.Select("value").From("snapshots").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		l.logger.Error("SQL error", zap.Error(err), zap.String("query", query))
		return model.PartialSnapshot{}, false
	}
	var value string
	err = l.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			l.logger.Error("local load error", zap.Error(err), zap.String("key", key))
		}
		return model.PartialSnapshot{}, false
	}
	snap, err := decodeSnapshot([]byte(value))
	if err != nil {
		l.logger.Warn("local load ignored", zap.Error(err), zap.String("key", key))
		return model.PartialSnapshot{}, false
	}
	return snap, true
}

func (l *LocalDB) Save(ctx context.Context, key string, snap model.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	query, args, err := sq.Insert("snapshots").
		Columns("key", "value", "updated_at").
		Values(key, string(data), time.Now().UnixMilli()).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err = l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("local save %s: %w", key, err)
	}
	return nil
}

func (l *LocalDB) GetMeta(ctx context.Context, key string) (string, bool) {
	var value string
	err := l.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			l.logger.Error("local meta error", zap.Error(err), zap.String("key", key))
		}
		return "", false
	}
	return value, true
}

func (l *LocalDB) SetMeta(ctx context.Context, key string, value string) error {
	query, args, err := sq.Insert("meta").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, query, args...)
	return err
}
