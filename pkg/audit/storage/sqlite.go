package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // "sqlite3" driver (cgo)
	_ "modernc.org/sqlite"          // "sqlite" driver (pure Go)

	"mercator-hq/vaultgate/pkg/audit"
	"mercator-hq/vaultgate/pkg/config"
)

// Driver names accepted in SQLiteConfig.Driver.
const (
	DriverModernc = "modernc"
	DriverCGO     = "cgo"
)

// SQLiteStorage implements audit.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config config.SQLiteConfig
	limits Limits
	logger *slog.Logger
}

// NewSQLiteStorage opens (creating if needed) the database at cfg.Path and
// applies the schema.
func NewSQLiteStorage(cfg config.SQLiteConfig, limits Limits) (*SQLiteStorage, error) {
	if cfg.Path == "" {
		return nil, audit.NewStorageError("sqlite", "open", errors.New("database path is empty"))
	}

	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, audit.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		limits: limits,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit database opened",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// dataSource maps the configured driver to a database/sql driver name and
// DSN. Busy timeout and journal mode go in the DSN so that every pooled
// connection gets them.
func dataSource(cfg config.SQLiteConfig) (driver, dsn string, err error) {
	busy := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch strings.ToLower(cfg.Driver) {
	case "", DriverModernc:
		driver = "sqlite"
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	case DriverCGO:
		driver = "sqlite3"
		params.Set("_busy_timeout", fmt.Sprint(busy))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	default:
		return "", "", fmt.Errorf("unknown sqlite driver %q", cfg.Driver)
	}

	return driver, "file:" + cfg.Path + "?" + params.Encode(), nil
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion, time.Now().UnixNano()); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts a record.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	keys := record.SecretKeys
	if keys == nil {
		keys = []string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	var errVal any
	if record.Error != "" {
		errVal = record.Error
	}

	_, err = s.db.ExecContext(ctx, insertRecord,
		record.ID, record.RequestID, record.Timestamp.UnixNano(), record.Service, record.Method,
		record.UpstreamHost, record.UpstreamPath, record.Status, record.DurationMS,
		string(keysJSON), record.Outcome, errVal,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	where, args := buildWhereClause(query)

	stmt := selectColumns + where + " ORDER BY timestamp DESC, id DESC LIMIT ?"
	var offset int
	var requested int
	if query != nil {
		offset, requested = query.Offset, query.Limit
	}
	limit := s.limits.apply(requested)
	if limit <= 0 {
		limit = -1 // no limit
	}
	args = append(args, limit)
	if offset > 0 {
		stmt += " OFFSET ?"
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of matching records, ignoring limit and offset.
func (s *SQLiteStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	where, args := buildWhereClause(query)

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records"+where, args...).Scan(&n); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// DeleteOlderThan removes records with a timestamp before cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_records WHERE timestamp < ?", cutoff.UnixNano())
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("audit database closed", "path", s.config.Path)
	return nil
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(query *audit.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.Service != "" {
		conditions = append(conditions, "service = ?")
		args = append(args, query.Service)
	}
	if query.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, query.Outcome)
	}
	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, query.Until.UnixNano())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		record   audit.Record
		ts       int64
		keysJSON string
		errVal   sql.NullString
	)

	err := rows.Scan(
		&record.ID, &record.RequestID, &ts, &record.Service, &record.Method,
		&record.UpstreamHost, &record.UpstreamPath, &record.Status, &record.DurationMS,
		&keysJSON, &record.Outcome, &errVal,
	)
	if err != nil {
		return nil, err
	}

	record.Timestamp = time.Unix(0, ts).UTC()
	if errVal.Valid {
		record.Error = errVal.String
	}
	if err := json.Unmarshal([]byte(keysJSON), &record.SecretKeys); err != nil {
		return nil, fmt.Errorf("decode secret_keys of %s: %w", record.ID, err)
	}
	return &record, nil
}
