package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperengineering/focusflow/migrations"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// PostgresBackend mirrors rows into PostgreSQL tables created by the
// remote migrations.
type PostgresBackend struct {
	db *sql.DB
}

var _ Backend = (*PostgresBackend)(nil)

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Migrate applies the remote schema migrations.
func Migrate(db *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.RemoteFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, migrations.RemoteDir); err != nil {
		return fmt.Errorf("run remote migrations: %w", err)
	}
	return nil
}

// NewPostgresBackend wraps an open database handle.
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Close closes the underlying database handle.
func (p *PostgresBackend) Close() error {
	return p.db.Close()
}

func (p *PostgresBackend) Select(ctx context.Context, schema TableSchema, userID string) ([]Record, error) {
	names := make([]string, 0, len(schema.Columns)+4)
	names = append(names, "local_id", "user_id", "created_at", "updated_at")
	for _, c := range schema.Columns {
		names = append(names, pq.QuoteIdentifier(c.Name))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC`,
		strings.Join(names, ", "), pq.QuoteIdentifier(schema.Name))

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", schema.Name, err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		holders := make([]any, len(schema.Columns))
		dest := []any{&rec.LocalID, &rec.UserID, &rec.CreatedAt, &rec.UpdatedAt}
		for i, c := range schema.Columns {
			holders[i] = scanHolder(c.Kind)
			dest = append(dest, holders[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", schema.Name, err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		rec.Columns = make(Columns, len(schema.Columns))
		for i, c := range schema.Columns {
			rec.Columns[c.Name] = scannedValue(holders[i])
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresBackend) Insert(ctx context.Context, schema TableSchema, rec Record) error {
	names, args, err := bindColumns(schema, rec.Columns)
	if err != nil {
		return err
	}
	names = append([]string{"local_id", "user_id", "created_at", "updated_at"}, names...)
	args = append([]any{rec.LocalID, rec.UserID, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC()}, args...)

	placeholders := make([]string, len(names))
	for i := range names {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (user_id, local_id) DO NOTHING`,
		pq.QuoteIdentifier(schema.Name), strings.Join(names, ", "), strings.Join(placeholders, ", "))

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s/%s: %w", schema.Name, rec.LocalID, err)
	}
	return nil
}

func (p *PostgresBackend) Update(ctx context.Context, schema TableSchema, userID, localID string, cols Columns, updatedAt time.Time) error {
	names, args, err := bindColumns(schema, cols)
	if err != nil {
		return err
	}
	sets := make([]string, 0, len(names)+1)
	for i, n := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", n, i+1))
	}
	n := len(args)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", n+1))
	args = append(args, updatedAt.UTC(), userID, localID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE user_id = $%d AND local_id = $%d`,
		pq.QuoteIdentifier(schema.Name), strings.Join(sets, ", "), n+2, n+3)

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s/%s: %w", schema.Name, localID, err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, schema TableSchema, userID, localID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND local_id = $2`, pq.QuoteIdentifier(schema.Name))
	if _, err := p.db.ExecContext(ctx, query, userID, localID); err != nil {
		return fmt.Errorf("delete %s/%s: %w", schema.Name, localID, err)
	}
	return nil
}

// bindColumns converts cols to quoted column names and driver arguments in
// a stable order. Names outside the schema are rejected.
func bindColumns(schema TableSchema, cols Columns) ([]string, []any, error) {
	keys := make([]string, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	names := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		col, ok := schema.Column(k)
		if !ok {
			return nil, nil, fmt.Errorf("%s.%s: %w", schema.Name, k, ErrUnknownColumn)
		}
		names = append(names, pq.QuoteIdentifier(col.Name))
		args = append(args, bindValue(col.Kind, cols[k]))
	}
	return names, args, nil
}

func bindValue(kind ColumnKind, v any) any {
	if v == nil {
		if kind == KindTextArray {
			return pq.Array([]string{})
		}
		return nil
	}
	switch kind {
	case KindTextArray:
		if s, ok := v.([]string); ok {
			return pq.Array(s)
		}
		return pq.Array([]string{})
	case KindJSON:
		switch j := v.(type) {
		case json.RawMessage:
			return string(j)
		case []byte:
			return string(j)
		}
	}
	return v
}

func scanHolder(kind ColumnKind) any {
	switch kind {
	case KindInt:
		return new(sql.NullInt64)
	case KindFloat:
		return new(sql.NullFloat64)
	case KindTime:
		return new(pq.NullTime)
	case KindTextArray:
		return new(pq.StringArray)
	case KindJSON:
		return new([]byte)
	default:
		return new(sql.NullString)
	}
}

func scannedValue(h any) any {
	switch v := h.(type) {
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
	case *sql.NullInt64:
		if v.Valid {
			return v.Int64
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64
		}
	case *pq.NullTime:
		if v.Valid {
			return v.Time.UTC()
		}
	case *pq.StringArray:
		return []string(*v)
	case *[]byte:
		if *v != nil {
			return json.RawMessage(append([]byte(nil), (*v)...))
		}
	}
	return nil
}
