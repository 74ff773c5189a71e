package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nlstn/go-searchable/internal/alias"
	"gorm.io/gorm/clause"
)

// Builder renders GORM clause expressions to SQL for a given dialect without a *gorm.DB.
// It implements clause.Builder, so any clause.Expression can be built into it.
type Builder struct {
	dialect string
	table   string
	sql     strings.Builder
	vars    []interface{}
	errs    []error
}

// NewBuilder creates a builder for the given dialect ("sqlite", "postgres", "mysql", ...).
// table is used for clause.CurrentTable references and may be empty.
func NewBuilder(dialect, table string) *Builder {
	return &Builder{dialect: dialect, table: table}
}

// WriteByte implements clause.Writer
func (b *Builder) WriteByte(c byte) error {
	return b.sql.WriteByte(c)
}

// WriteString implements clause.Writer
func (b *Builder) WriteString(s string) (int, error) {
	return b.sql.WriteString(s)
}

// WriteQuoted writes a quoted table, column or identifier.
func (b *Builder) WriteQuoted(field interface{}) {
	b.quoteTo(b, field)
}

func (b *Builder) quoteTo(writer clause.Writer, field interface{}) {
	switch v := field.(type) {
	case clause.Table:
		switch {
		case v.Name == clause.CurrentTable:
			writeString(writer, quoteIdentifier(b.dialect, b.table))
		case v.Raw:
			writeString(writer, alias.Expand(v.Name, b.quote))
		default:
			writeString(writer, quoteIdentifier(b.dialect, v.Name))
		}
		if v.Alias != "" {
			_ = writer.WriteByte(' ')
			writeString(writer, quoteIdentifier(b.dialect, v.Alias))
		}
	case clause.Column:
		if v.Table != "" {
			if v.Table == clause.CurrentTable {
				writeString(writer, quoteIdentifier(b.dialect, b.table))
			} else {
				writeString(writer, quoteIdentifier(b.dialect, v.Table))
			}
			_ = writer.WriteByte('.')
		}
		if v.Raw {
			writeString(writer, v.Name)
		} else {
			writeString(writer, quoteIdentifier(b.dialect, v.Name))
		}
		if v.Alias != "" {
			writeString(writer, " AS ")
			writeString(writer, quoteIdentifier(b.dialect, v.Alias))
		}
	case []clause.Column:
		_ = writer.WriteByte('(')
		for idx, column := range v {
			if idx > 0 {
				_ = writer.WriteByte(',')
			}
			b.quoteTo(writer, column)
		}
		_ = writer.WriteByte(')')
	case clause.Expression:
		v.Build(b)
	case string:
		writeString(writer, quoteIdentifier(b.dialect, v))
	default:
		writeString(writer, quoteIdentifier(b.dialect, fmt.Sprint(field)))
	}
}

// AddVar writes placeholders for vars and records their values.
// Columns and tables are quoted inline, nested expressions are built in place.
func (b *Builder) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			_ = writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Column, clause.Table:
			b.quoteTo(writer, v)
		case clause.Expression:
			v.Build(b)
		case []interface{}:
			if len(v) > 0 {
				_ = writer.WriteByte('(')
				b.AddVar(writer, v...)
				_ = writer.WriteByte(')')
			} else {
				writeString(writer, "(NULL)")
			}
		default:
			b.vars = append(b.vars, v)
			writeString(writer, b.placeholder())
		}
	}
}

// AddError records a build error; it is reported by Err.
func (b *Builder) AddError(err error) error {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return err
}

// SQL returns the rendered SQL text
func (b *Builder) SQL() string {
	return b.sql.String()
}

// Vars returns the bound values in placeholder order
func (b *Builder) Vars() []interface{} {
	return b.vars
}

// Err returns the first error recorded while building, if any
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return b.errs[0]
}

func (b *Builder) quote(name string) string {
	return quoteIdentifier(b.dialect, name)
}

func (b *Builder) placeholder() string {
	if isPostgres(b.dialect) {
		return "$" + strconv.Itoa(len(b.vars))
	}
	return "?"
}

// Render builds a single expression for the dialect.
func Render(dialect string, expr clause.Expression) (string, []interface{}, error) {
	b := NewBuilder(dialect, "")
	expr.Build(b)
	return b.SQL(), b.Vars(), b.Err()
}

// SelectBuilder accumulates clauses for a SELECT over one source table.
// Conditions are GORM clause expressions rendered through Builder.
type SelectBuilder struct {
	dialect string
	from    *clause.Table
	table   string
	wheres  []clause.Expression
	selects []string
	orders  []clause.Expression
	limit   *int
	logger  *slog.Logger
}

// NewSelectBuilder creates a new SELECT builder for the given dialect
func NewSelectBuilder(dialect string) *SelectBuilder {
	return &SelectBuilder{
		dialect: dialect,
		logger:  slog.Default(),
	}
}

// From sets the source table, optionally aliased.
func (sb *SelectBuilder) From(table, tableAlias string) *SelectBuilder {
	sb.table = table
	sb.from = &clause.Table{Name: table, Alias: tableAlias}
	return sb
}

// FromRaw sets the source to a raw table expression written verbatim,
// except that {{name}} markers are replaced by quoted identifiers.
func (sb *SelectBuilder) FromRaw(expr string) *SelectBuilder {
	sb.table = expr
	sb.from = &clause.Table{Name: expr, Raw: true}
	return sb
}

// Where adds a condition; conditions are joined with AND
func (sb *SelectBuilder) Where(expr clause.Expression) *SelectBuilder {
	sb.wheres = append(sb.wheres, expr)
	return sb
}

// Select sets the SELECT columns for the query
func (sb *SelectBuilder) Select(cols ...string) *SelectBuilder {
	sb.selects = append(sb.selects, cols...)
	return sb
}

// OrderBy adds an ORDER BY expression
func (sb *SelectBuilder) OrderBy(expr clause.Expression) *SelectBuilder {
	sb.orders = append(sb.orders, expr)
	return sb
}

// Limit sets the LIMIT for the query
func (sb *SelectBuilder) Limit(n int) *SelectBuilder {
	sb.limit = &n
	return sb
}

// ToSQL builds the final SELECT statement with bound arguments
func (sb *SelectBuilder) ToSQL() (string, []interface{}, error) {
	b := NewBuilder(sb.dialect, sb.table)

	writeString(b, "SELECT ")
	if len(sb.selects) > 0 {
		for idx, col := range sb.selects {
			if idx > 0 {
				writeString(b, ", ")
			}
			writeString(b, col)
		}
	} else {
		writeString(b, "*")
	}

	sb.writeFromWhere(b)

	if len(sb.orders) > 0 {
		writeString(b, " ORDER BY ")
		for idx, order := range sb.orders {
			if idx > 0 {
				writeString(b, ", ")
			}
			order.Build(b)
		}
	}

	if sb.limit != nil {
		writeString(b, fmt.Sprintf(" LIMIT %d", *sb.limit))
	}

	return b.SQL(), b.Vars(), b.Err()
}

// ToCountSQL builds a COUNT(*) query over the same source and conditions
func (sb *SelectBuilder) ToCountSQL() (string, []interface{}, error) {
	b := NewBuilder(sb.dialect, sb.table)
	writeString(b, "SELECT COUNT(*)")
	sb.writeFromWhere(b)
	return b.SQL(), b.Vars(), b.Err()
}

func (sb *SelectBuilder) writeFromWhere(b *Builder) {
	if sb.from != nil {
		writeString(b, " FROM ")
		b.WriteQuoted(*sb.from)
	}

	if len(sb.wheres) > 0 {
		writeString(b, " WHERE ")
		for idx, where := range sb.wheres {
			if idx > 0 {
				writeString(b, " AND ")
			}
			where.Build(b)
		}
	}
}

// QueryContext executes the query and returns the result rows
func (sb *SelectBuilder) QueryContext(ctx context.Context, db *sql.DB) (*sql.Rows, error) {
	query, args, err := sb.ToSQL()
	if err != nil {
		return nil, err
	}

	if sb.logger != nil {
		sb.logger.Debug("Executing query", "sql", query, "args", args)
	}

	return db.QueryContext(ctx, query, args...)
}

// CountContext executes the count query and returns the count
func (sb *SelectBuilder) CountContext(ctx context.Context, db *sql.DB) (int64, error) {
	query, args, err := sb.ToCountSQL()
	if err != nil {
		return 0, err
	}

	if sb.logger != nil {
		sb.logger.Debug("Executing count query", "sql", query, "args", args)
	}

	var count int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// quoteIdentifier quotes each dot-separated part of name for the dialect.
func quoteIdentifier(dialect, name string) string {
	quote := `"`
	if dialect == "mysql" {
		quote = "`"
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = quote + strings.ReplaceAll(part, quote, quote+quote) + quote
	}
	return strings.Join(parts, ".")
}

func isPostgres(dialect string) bool {
	return dialect == "postgres" || dialect == "postgresql"
}

func writeString(writer clause.Writer, s string) {
	_, _ = writer.WriteString(s)
}
