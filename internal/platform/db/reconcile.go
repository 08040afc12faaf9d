package db

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Column is a required column and the declaration used to add it
// (type plus optional DEFAULT clause), e.g. "TIMESTAMPTZ NOT NULL DEFAULT NOW()".
type Column struct {
	Name string
	Decl string
}

// TableSpec lists the columns a write path depends on.
type TableSpec struct {
	Table   string
	Columns []Column
}

// ColumnNames returns the names of the spec's columns in declaration order.
func (s TableSpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnInfo is the live metadata of one column.
type ColumnInfo struct {
	Name       string
	Nullable   bool
	HasDefault bool
}

// Reconciler brings tables created under older schemas up to the column set
// the current code writes, without dropping or rewriting existing rows.
type Reconciler struct {
	conn   Queryable
	logger zerolog.Logger
}

func NewReconciler(conn Queryable, logger zerolog.Logger) *Reconciler {
	return &Reconciler{conn: conn, logger: logger}
}

// Columns reads the live column metadata of table in the current schema.
// An empty map means the table does not exist.
func (r *Reconciler) Columns(ctx context.Context, table string) (map[string]ColumnInfo, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT column_name, is_nullable = 'YES', column_default IS NOT NULL
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]ColumnInfo)
	for rows.Next() {
		var ci ColumnInfo
		if err := rows.Scan(&ci.Name, &ci.Nullable, &ci.HasDefault); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols[ci.Name] = ci
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	return cols, nil
}

// Ensure adds every column of spec that is missing from the live table and
// returns the names it added. Running it against an up-to-date table costs a
// single metadata read.
func (r *Reconciler) Ensure(ctx context.Context, spec TableSpec) ([]string, error) {
	if !identifierPattern.MatchString(spec.Table) {
		return nil, fmt.Errorf("invalid table name %q", spec.Table)
	}
	for _, c := range spec.Columns {
		if !identifierPattern.MatchString(c.Name) {
			return nil, fmt.Errorf("invalid column name %q on %s", c.Name, spec.Table)
		}
	}

	live, err := r.Columns(ctx, spec.Table)
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return nil, fmt.Errorf("table %s does not exist", spec.Table)
	}

	var added []string
	for _, c := range spec.Columns {
		if _, ok := live[c.Name]; ok {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			pgx.Identifier{spec.Table}.Sanitize(), pgx.Identifier{c.Name}.Sanitize(), c.Decl)
		if _, err := r.conn.Exec(ctx, stmt); err != nil {
			return added, fmt.Errorf("add column %s.%s: %w", spec.Table, c.Name, err)
		}
		r.logger.Info().
			Str("table", spec.Table).
			Str("column", c.Name).
			Str("decl", c.Decl).
			Msg("added missing column")
		added = append(added, c.Name)
	}
	return added, nil
}

// EnsureAll runs Ensure for each spec and returns how many columns were added.
func (r *Reconciler) EnsureAll(ctx context.Context, specs []TableSpec) (int, error) {
	total := 0
	for _, spec := range specs {
		added, err := r.Ensure(ctx, spec)
		total += len(added)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Unfilled returns the columns of table that are NOT NULL without a default
// and are not among written. An insert that only supplies written would fail
// against such a table.
func (r *Reconciler) Unfilled(ctx context.Context, table string, written []string) ([]string, error) {
	live, err := r.Columns(ctx, table)
	if err != nil {
		return nil, err
	}

	supplied := make(map[string]bool, len(written))
	for _, w := range written {
		supplied[w] = true
	}

	var missing []string
	for name, ci := range live {
		if ci.Nullable || ci.HasDefault || supplied[name] {
			continue
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing, nil
}
