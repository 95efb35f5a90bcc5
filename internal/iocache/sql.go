package iocache

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/cpkwatch/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// validateTableName rejects anything that is not a plain identifier.
func validateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// quoteTableName quotes an identifier for the backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "`" + name + "`"
	default:
		return `"` + name + `"`
	}
}

// driverFor maps a backend to its database/sql driver name.
func driverFor(backend schema.DatabaseBackend) (string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", nil
	case schema.MySQLBackend:
		return "mysql", nil
	case schema.PostgreSQLBackend:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
}

// openDatabase opens and pings a connection. SQLite falls back to defaultPath
// and is limited to one connection to avoid "database is locked" errors.
func openDatabase(backend schema.DatabaseBackend, connStr, defaultPath string) (*sql.DB, error) {
	driverName, err := driverFor(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = defaultPath
	}

	db, err := sql.Open(driverName, connStr)
	if err != nil {
		switch backend {
		case schema.SQLiteBackend:
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Ensure the directory is writable", connStr, err)
		case schema.MySQLBackend:
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection format: user:password@tcp(host:port)/dbname?parseTime=true", err)
		default:
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}
	}
	if backend == schema.SQLiteBackend {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// placeholders returns n bind parameters starting at position from.
func placeholders(backend schema.DatabaseBackend, from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = placeholder(backend, from+i)
	}
	return strings.Join(parts, ", ")
}

// placeholder returns the bind parameter at a 1-based position.
func placeholder(backend schema.DatabaseBackend, pos int) string {
	if backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}

// timeScanner reads a timestamp column regardless of how the backend stores it.
// SQLite keeps RFC3339 text while MySQL and PostgreSQL return native times.
type timeScanner struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (ts *timeScanner) Scan(src any) error {
	*ts = timeScanner{}
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		ts.Time, ts.Valid = v, true
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
}

// timestampLayouts are tried in order. The second is what MySQL returns
// when the DSN lacks parseTime=true.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999"}

func (ts *timeScanner) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time, ts.Valid = t, true
			return nil
		}
	}
	return fmt.Errorf("failed to parse timestamp %q", s)
}

// Ptr returns the time or nil when the column was NULL.
func (ts timeScanner) Ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
