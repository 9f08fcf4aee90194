package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"fieldcore/config"
)

// Dialect captures the small set of SQL differences between the supported drivers.
type Dialect interface {
	Name() string
	DriverName() string
	Now() string
	AutoIncrementPK() string
	Tune(db *sql.DB)
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string            { return "sqlite" }
func (sqliteDialect) DriverName() string      { return "sqlite" }
func (sqliteDialect) Now() string             { return "datetime('now')" }
func (sqliteDialect) AutoIncrementPK() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

// modernc sqlite permits one writer; WAL plus the busy timeout covers readers.
func (sqliteDialect) Tune(db *sql.DB) { db.SetMaxOpenConns(1) }

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}

type postgresDialect struct{}

func (postgresDialect) Name() string            { return "postgres" }
func (postgresDialect) DriverName() string      { return "pgx" }
func (postgresDialect) Now() string             { return "NOW()" }
func (postgresDialect) AutoIncrementPK() string { return "BIGSERIAL PRIMARY KEY" }
func (postgresDialect) Tune(*sql.DB)            {}

func postgresDSN(cfg *config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)
}

// Rebind rewrites ? placeholders to $1, $2, ... for pgx.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
