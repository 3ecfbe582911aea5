package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/netrixframework/interop/types"
	_ "modernc.org/sqlite"
)

// ErrUnknownDialect is returned for SQL dialects other than sqlite and postgres
var ErrUnknownDialect = errors.New("audit: unknown sql dialect")

// Dialect selects the SQL flavour of a SQLSink
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var eventColumns = []string{
	"id", "message_id", "protocol", "direction", "source_system", "target_system",
	"raw_payload", "parsed_data", "validation_status", "validation_errors", "routed_to",
	"trust_score", "response", "latency_ms", "status", "error", "processed_at", "created_at",
}

var schemas = map[Dialect]string{
	DialectSQLite: `CREATE TABLE IF NOT EXISTS interop_events (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	protocol TEXT NOT NULL,
	direction TEXT NOT NULL,
	source_system TEXT NOT NULL,
	target_system TEXT,
	raw_payload TEXT,
	parsed_data TEXT,
	validation_status TEXT NOT NULL,
	validation_errors TEXT NOT NULL,
	routed_to TEXT,
	trust_score REAL,
	response TEXT,
	latency_ms INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	processed_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL
)`,
	DialectPostgres: `CREATE TABLE IF NOT EXISTS interop_events (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	protocol TEXT NOT NULL,
	direction TEXT NOT NULL,
	source_system TEXT NOT NULL,
	target_system TEXT,
	raw_payload JSONB,
	parsed_data JSONB,
	validation_status TEXT NOT NULL,
	validation_errors JSONB NOT NULL,
	routed_to TEXT,
	trust_score DOUBLE PRECISION,
	response JSONB,
	latency_ms BIGINT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
)`,
}

// SQLSink stores events in an interop_events table
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	insert  string
	owned   bool
}

// OpenSQLSink opens a database with the driver matching dialect and prepares the table
func OpenSQLSink(ctx context.Context, dialect Dialect, dsn string) (*SQLSink, error) {
	if _, ok := schemas[dialect]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// every sqlite connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLSink(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLSink uses an open database. The table is created when missing.
func NewSQLSink(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLSink, error) {
	schema, ok := schemas[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, dialect)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("audit: create interop_events: %w", err)
	}
	return &SQLSink{
		db:      db,
		dialect: dialect,
		insert:  insertStatement(dialect),
	}, nil
}

func insertStatement(dialect Dialect) string {
	placeholders := make([]string, len(eventColumns))
	for i := range eventColumns {
		if dialect == DialectPostgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO interop_events (%s) VALUES (%s)",
		strings.Join(eventColumns, ", "), strings.Join(placeholders, ", "))
}

func nullJSON(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

// Record implements Sink
func (s *SQLSink) Record(ctx context.Context, event *types.InteropEvent) error {
	validationErrors, err := json.Marshal(event.ValidationErrors)
	if err != nil {
		return fmt.Errorf("audit: encode validation errors: %w", err)
	}
	var routedTo sql.NullString
	if event.RoutedTo != nil {
		routedTo = sql.NullString{String: *event.RoutedTo, Valid: true}
	}
	var trust sql.NullFloat64
	if event.TrustScore != nil {
		trust = sql.NullFloat64{Float64: *event.TrustScore, Valid: true}
	}
	var processedAt sql.NullTime
	if event.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *event.ProcessedAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, s.insert,
		event.ID,
		event.MessageID,
		string(event.Protocol),
		string(event.Direction),
		event.SourceSystem,
		event.TargetSystem,
		nullJSON(event.RawPayload),
		nullJSON(event.ParsedData),
		string(event.ValidationStatus),
		string(validationErrors),
		routedTo,
		trust,
		nullJSON(event.Response),
		event.LatencyMs,
		string(event.Status),
		event.Error,
		processedAt,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event %s: %w", event.ID, err)
	}
	return nil
}

// CountByStatus returns the number of stored events per processing status
func (s *SQLSink) CountByStatus(ctx context.Context) (map[types.ProcessingStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM interop_events GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("audit: count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.ProcessingStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("audit: scan count: %w", err)
		}
		counts[types.ProcessingStatus(status)] = n
	}
	return counts, rows.Err()
}

// Close closes the database if the sink opened it
func (s *SQLSink) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}
