package searchable

import (
	"gorm.io/gorm/schema"

	"github.com/nlstn/go-searchable/internal/alias"
)

// Query describes the query a condition will be merged into.
// It is read once by New; later changes to the value do not affect a built Expression.
type Query struct {
	// Model is the record type being queried: a struct value, a pointer to one,
	// or a pointer to a slice of them. Its table name follows GORM's rules
	// (TableName() or the naming strategy); its searchable key is taken from
	// SearchableKey(), a `searchable:"key"` field, or the primary key.
	Model interface{}

	// From mirrors the query's FROM configuration in declaration order.
	// Only the first entry is consulted.
	From []FromEntry

	// Naming is the naming strategy of the engine that will run the query.
	// Nil selects GORM's default strategy.
	Naming schema.Namer
}

// FromEntry is one FROM source: an aliased table (Alias set) or a raw table
// expression such as "users u" or "users AS u" (Alias empty).
type FromEntry struct {
	Alias string
	Table string
}

// Source is the FROM shape of a query: DefaultSource, AliasedSource or RawSource.
type Source interface {
	isSource()
}

// DefaultSource selects from the record type's own table.
type DefaultSource struct{}

// AliasedSource selects from Table under an explicit Alias.
type AliasedSource struct {
	Alias string
	Table string
}

// RawSource selects from a free-text table expression that may end in an alias.
type RawSource struct {
	Expr string
}

func (DefaultSource) isSource() {}
func (AliasedSource) isSource() {}
func (RawSource) isSource()     {}

// Source classifies the query's FROM configuration.
func (q *Query) Source() Source {
	if q == nil || len(q.From) == 0 {
		return DefaultSource{}
	}

	first := q.From[0]
	if first.Alias != "" {
		return AliasedSource{Alias: first.Alias, Table: first.Table}
	}
	return RawSource{Expr: first.Table}
}

// resolveTableAndAlias returns the table expression of src and the alias the
// engine binds it to. defaultTable is used for DefaultSource.
func resolveTableAndAlias(src Source, defaultTable string) (string, string) {
	var raw string
	switch s := src.(type) {
	case AliasedSource:
		return s.Table, s.Alias
	case RawSource:
		raw = s.Expr
	default:
		raw = defaultTable
	}
	return raw, alias.Resolve(raw)
}
