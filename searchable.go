// Package searchable restricts queries to record ids returned by a search index.
//
// A search index answers a term with an ordered list of record ids. To load the
// matching records, the ids must be turned into a condition on the query that
// selects the records:
//
//	<alias>.<key column> IN (<ids>)
//
// The qualifier has to be the alias the query engine binds to the selected
// table, otherwise the condition refers to a table that is not in scope. The
// Expression type resolves that alias from the query's FROM configuration the
// same way the engine does:
//
//   - no FROM: the record type's table name
//   - an aliased first entry ({Alias: "u", Table: "users"}): the alias
//   - a raw first entry ("users u", "users AS u"): its last whitespace-separated
//     token, or the whole text when there is none
//
// # GORM
//
// Scope adds the condition to a *gorm.DB, reading the FROM state GORM itself
// recorded from Table and Clauses:
//
//	db.Table("users u").Scopes(searchable.Scope(ids)).Find(&users)
//
// # Searcher
//
// Searcher runs an Index and loads the matching records in one call, with
// slog logging and optional OpenTelemetry tracing and metrics.
//
// # database/sql
//
// Expression.SQL and Expression.SelectSQL render the condition for callers that
// do not use GORM; Expression.Rows and Expression.Count run it on a *sql.DB.
package searchable

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/nlstn/go-searchable/internal/alias"
	"github.com/nlstn/go-searchable/internal/metadata"
	"github.com/nlstn/go-searchable/internal/query"
)

// Expression builds the condition restricting a query to a set of ids.
// It is immutable after New and safe for concurrent use.
type Expression struct {
	source Source
	record *metadata.RecordMetadata
	ids    []interface{}
}

// New validates its inputs and returns a builder for q and ids.
//
// ids must be non-empty (ErrMissingIDs) and q must be non-nil (ErrMissingQuery).
// The query's record type is analyzed here as well, so a model without a table
// name or searchable key fails with ErrMissingModel instead of producing a
// malformed condition later. ids are copied.
func New(q *Query, ids []interface{}) (*Expression, error) {
	if len(ids) == 0 {
		return nil, ErrMissingIDs
	}
	if q == nil {
		return nil, ErrMissingQuery
	}
	if q.Model == nil {
		return nil, ErrMissingModel
	}

	record, err := metadata.Analyze(q.Model, q.Naming)
	if err != nil {
		return nil, &ConfigurationError{Field: ErrMissingModel.Field, Reason: ErrMissingModel.Reason, Err: err}
	}

	return &Expression{
		source: q.Source(),
		record: record,
		ids:    append([]interface{}(nil), ids...),
	}, nil
}

// Values converts a typed id slice for New.
func Values[T any](ids []T) []interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}

// TableNameAndAlias returns the table expression the query selects from and
// the alias that qualifies the generated column.
func (e *Expression) TableNameAndAlias() (string, string) {
	return resolveTableAndAlias(e.source, e.record.TableName)
}

// SearchableKey returns the key column matched against the ids.
func (e *Expression) SearchableKey() string {
	return e.record.SearchableKey
}

// IDs returns a copy of the identifier set.
func (e *Expression) IDs() []interface{} {
	return append([]interface{}(nil), e.ids...)
}

// Condition returns `<alias>.<key> IN (<ids>)`. Quoting of the alias and the
// column is done by the engine when the condition is built into SQL; a
// {{name}} alias marker is unwrapped so it is quoted as name.
func (e *Expression) Condition() clause.IN {
	return clause.IN{Column: e.column(), Values: e.IDs()}
}

// OrderByIDs returns an expression ranking rows by the position of their key
// in the identifier set, for ORDER BY. Ids repeated in the set keep their first position.
func (e *Expression) OrderByIDs() clause.Expression {
	var expr strings.Builder
	vars := make([]interface{}, 0, len(e.ids)+1)

	expr.WriteString("CASE ?")
	vars = append(vars, e.column())
	for i, id := range e.ids {
		expr.WriteString(" WHEN ? THEN ")
		expr.WriteString(strconv.Itoa(i))
		vars = append(vars, id)
	}
	expr.WriteString(" END")

	return clause.Expr{SQL: expr.String(), Vars: vars}
}

// SQL renders the condition for a database/sql dialect ("sqlite", "postgres", "mysql").
func (e *Expression) SQL(dialect string) (string, []interface{}, error) {
	return query.Render(dialect, e.Condition())
}

// SelectSQL renders a SELECT of columns (all when empty) over the query's
// source restricted to the ids, ordered by their position in the identifier set.
func (e *Expression) SelectSQL(dialect string, columns ...string) (string, []interface{}, error) {
	return e.rankedSelect(dialect, columns).ToSQL()
}

// Rows runs the SELECT rendered by SelectSQL on db. When limit > 0 at most
// limit rows are returned, the best ranked first.
func (e *Expression) Rows(ctx context.Context, db *sql.DB, dialect string, limit int, columns ...string) (*sql.Rows, error) {
	sb := e.rankedSelect(dialect, columns)
	if limit > 0 {
		sb.Limit(limit)
	}
	return sb.QueryContext(ctx, db)
}

// Count returns how many rows of the query's source match the ids.
func (e *Expression) Count(ctx context.Context, db *sql.DB, dialect string) (int64, error) {
	return e.selectBuilder(dialect).CountContext(ctx, db)
}

func (e *Expression) rankedSelect(dialect string, columns []string) *query.SelectBuilder {
	return e.selectBuilder(dialect).
		Select(columns...).
		OrderBy(e.OrderByIDs())
}

func (e *Expression) selectBuilder(dialect string) *query.SelectBuilder {
	sb := query.NewSelectBuilder(dialect)
	switch s := e.source.(type) {
	case AliasedSource:
		sb.From(s.Table, alias.Unwrap(s.Alias))
	case RawSource:
		sb.FromRaw(s.Expr)
	default:
		if strings.ContainsAny(e.record.TableName, " \t\n") {
			sb.FromRaw(e.record.TableName)
		} else {
			sb.From(e.record.TableName, "")
		}
	}
	return sb.Where(e.Condition())
}

func (e *Expression) column() clause.Column {
	_, tableAlias := e.TableNameAndAlias()
	return clause.Column{Table: alias.Unwrap(tableAlias), Name: e.record.SearchableKey}
}
