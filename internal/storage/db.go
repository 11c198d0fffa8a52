package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB wraps a database/sql connection to one of the supported SQL backends.
type DB struct {
	conn   *sql.DB
	driver string // database/sql driver name: sqlite, postgres or mysql
}

// OpenSQLite opens (or creates) the SQLite file at path.
func OpenSQLite(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open("sqlite", sqliteDSN(path))
}

// Open connects with the given driver name and DSN and applies migrations.
func Open(driver, dsn string) (*DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite only supports one writer; a single connection avoids SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(5)
		conn.SetMaxIdleConns(2)
		conn.SetConnMaxLifetime(10 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// rebind rewrites ? placeholders into the driver's syntax.
func (db *DB) rebind(query string) string {
	if db.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// upsert returns the driver's INSERT ... ON CONFLICT statement for table.
// The first column is the key; columns listed in keep are not overwritten.
func (db *DB) upsert(table string, cols []string, keep ...string) string {
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	var sets []string
	for _, c := range cols[1:] {
		if kept[c] {
			continue
		}
		if db.driver == "mysql" {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders)
	if db.driver == "mysql" {
		return q + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return q + fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET ", cols[0]) + strings.Join(sets, ", ")
}

func (db *DB) migrate(ctx context.Context) error {
	text := "TEXT"
	if db.driver == "mysql" {
		// TEXT caps at 64KB in MySQL; trees and snapshots can exceed it.
		text = "LONGTEXT"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id VARCHAR(191) PRIMARY KEY,
			title VARCHAR(512) NOT NULL,
			tree_json ` + text + ` NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		// Undo/redo stacks per document; seq orders entries oldest first.
		`CREATE TABLE IF NOT EXISTS history_entries (
			doc_id VARCHAR(191) NOT NULL,
			stack VARCHAR(8) NOT NULL,
			seq INTEGER NOT NULL,
			label VARCHAR(512) NOT NULL,
			snapshot_json ` + text + ` NOT NULL,
			recorded_at BIGINT NOT NULL,
			PRIMARY KEY (doc_id, stack, seq)
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}
	return nil
}
